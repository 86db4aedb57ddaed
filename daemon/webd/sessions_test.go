package webd

import (
	"testing"
	"time"

	"github.com/rotblauer/catfuse/api"
)

func TestSessionEntry_UnlocksOnPanic(t *testing.T) {
	e := &sessionEntry{session: api.NewSession("p", nil, nil)}
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to propagate")
			}
		}()
		e.with(func(*api.Session) { panic("boom") })
	}()

	done := make(chan struct{})
	go func() {
		e.with(func(s *api.Session) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session lock still held after a panic")
	}
}
