package platform

import (
	"errors"
	"testing"
)

func stubClipboard(t *testing.T, unsupported bool, write func(string) error) {
	t.Helper()
	prevUnsupported, prevWrite := clipboardUnsupported, writeClipboard
	clipboardUnsupported = func() bool { return unsupported }
	writeClipboard = write
	t.Cleanup(func() {
		clipboardUnsupported, writeClipboard = prevUnsupported, prevWrite
	})
}

func TestCopyToClipboard(t *testing.T) {
	var got string
	stubClipboard(t, false, func(text string) error {
		got = text
		return nil
	})
	if err := CopyToClipboard("rosy-fingered Dawn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "rosy-fingered Dawn" {
		t.Fatalf("unexpected clipboard text: %q", got)
	}
}

func TestCopyToClipboard_Unsupported(t *testing.T) {
	called := false
	stubClipboard(t, true, func(string) error {
		called = true
		return nil
	})
	if err := CopyToClipboard("x"); !errors.Is(err, errNoClipboard) {
		t.Fatalf("expected errNoClipboard, got %v", err)
	}
	if called {
		t.Fatal("clipboard must not be written when unsupported")
	}
}

func TestCopyToClipboard_WrapsWriteError(t *testing.T) {
	boom := errors.New("xclip exited 1")
	stubClipboard(t, false, func(string) error { return boom })
	if err := CopyToClipboard("x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}
