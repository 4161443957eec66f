package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported means no clipboard utility (xclip, xsel, wl-copy,
// pbcopy) was found at startup.
var ErrUnsupported = errors.New("no clipboard utility available")

func Available() bool { return !cb.Unsupported }

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}
