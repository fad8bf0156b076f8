package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := VolumeExceeded("too much")
	if KindOf(err) != KindVolumeExceeded {
		t.Errorf("expected %s, got %s", KindVolumeExceeded, KindOf(err))
	}

	wrapped := fmt.Errorf("split donation: %w", err)
	if KindOf(wrapped) != KindVolumeExceeded {
		t.Error("kind must survive wrapping")
	}

	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors carry no kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{ValidationField("pulse", "out of range"), http.StatusBadRequest},
		{VolumeExceeded("over"), http.StatusUnprocessableEntity},
		{IllegalComponent("nope"), http.StatusUnprocessableEntity},
		{InsufficientSelection("short"), http.StatusUnprocessableEntity},
		{IncompleteTests("pending"), http.StatusUnprocessableEntity},
		{InvalidTransition("blocked"), http.StatusConflict},
		{Conflict("busy"), http.StatusConflict},
		{ConcurrentModification("raced"), http.StatusConflict},
		{NotFound("missing"), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestPayloadMasksInternals(t *testing.T) {
	body := Payload(errors.New("pq: connection refused"))
	e, ok := body["error"].(*Error)
	if !ok {
		t.Fatal("payload missing error")
	}
	if e.Message != "internal server error" {
		t.Errorf("internal details leaked: %q", e.Message)
	}
}

func TestErrorString(t *testing.T) {
	e := ValidationField("weight", "out of range")
	want := "validation: weight: out of range"
	if e.Error() != want {
		t.Errorf("expected %q, got %q", want, e.Error())
	}
}
