package common

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestInterruptContext_Signal(t *testing.T) {
	defer SlogResetLevel(slog.LevelError)()

	ctx, cancel := InterruptContext(context.Background())
	defer cancel()
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected context to be canceled by SIGTERM")
	}
}

func TestInterruptContext_Cancel(t *testing.T) {
	ctx, cancel := InterruptContext(context.Background())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected context to be canceled")
	}
}
