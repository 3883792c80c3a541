package platform

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

var errNoClipboard = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")

var (
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
	writeClipboard       = clipboard.WriteAll
)

// CopyToClipboard writes text to the system clipboard.
func CopyToClipboard(text string) error {
	if clipboardUnsupported() {
		return errNoClipboard
	}
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
