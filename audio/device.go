package audio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var btKeywords = []string{
	"airpods", "bose", "jabra", "galaxy buds", "pixel buds",
	"bluetooth", " bt ", " bt)",
}

// IsBluetooth guesses from the device name whether capture goes over a
// headset profile, which degrades microphone audio to 8-16 kHz.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FindDevice returns the first capture device whose name contains name,
// case-insensitively. An empty name selects the system default (nil).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), want) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
}

// SelectDevice presents an interactive device picker on the terminal.
// With a single device it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	idx, err := pick(devices, os.Stdin, os.Stdout)
	if err != nil {
		return nil, err
	}
	return &devices[idx], nil
}

var errPickAborted = fmt.Errorf("device selection aborted")

// pick runs the arrow-key list over raw terminal input and returns the
// chosen index.
func pick(devices []DeviceInfo, in io.Reader, out io.Writer) (int, error) {
	cursor := 0
	render := func() {
		fmt.Fprint(out, "\r\x1b[J")
		fmt.Fprint(out, "Select input device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[headset profile]\x1b[0m"
			}
			if i == cursor {
				fmt.Fprintf(out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Fprintf(out, "    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		switch {
		case n == 1 && (buf[0] == '\r' || buf[0] == '\n'):
			fmt.Fprint(out, "\r\n")
			return cursor, nil
		case n == 1 && (buf[0] == 3 || buf[0] == 'q'): // ctrl+c
			fmt.Fprint(out, "\r\n")
			return 0, errPickAborted
		case n == 1 && buf[0] == 'j', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			if cursor < len(devices)-1 {
				cursor++
			}
		case n == 1 && buf[0] == 'k', n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			if cursor > 0 {
				cursor--
			}
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		render()
	}
}
