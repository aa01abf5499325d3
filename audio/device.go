package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"tonegen/driver"
)

var ErrSelectionCancelled = errors.New("device selection cancelled")

// ListDevices returns the outputs d can name, using the full list when the driver
// offers one. It returns nil when the driver cannot enumerate.
func ListDevices(d driver.Driver) ([]string, error) {
	if !d.ExtensionPresent(driver.EnumerationExt) {
		return nil, nil
	}
	spec := driver.DeviceSpecifier
	if d.ExtensionPresent(driver.EnumerateAllExt) {
		spec = driver.AllDevicesSpecifier
	}
	names := d.DeviceNames(spec)
	if err := driver.CheckDevice(d, 0); err != nil {
		return nil, err
	}
	return names, nil
}

// SelectDevice presents an interactive picker over names and returns the chosen
// one. With a single name it returns it without prompting.
func SelectDevice(names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no output devices found")
	}

	if len(names) == 1 {
		return names[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("setting raw mode: %w", err)
	}

	defer term.Restore(fd, oldState)

	cursor := 0
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select output device (↑/↓, Enter to confirm):\r\n\r\n")
		for i, name := range names {
			btTag := ""
			if IsBluetooth(name) {
				btTag = " \x1b[33m[⚠ Bluetooth latency]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", name, btTag)
			} else {
				fmt.Printf("    %s%s\r\n", name, btTag)
			}
		}
	}

	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		if n == 1 {
			switch buf[0] {
			case 13: // Enter
				fmt.Print("\r\n")
				return names[cursor], nil
			case 3, 'q': // Ctrl+C
				fmt.Print("\r\n")
				return "", ErrSelectionCancelled
			case 'j': // vim down
				cursor = moveCursor(cursor, 1, len(names))
			case 'k': // vim up
				cursor = moveCursor(cursor, -1, len(names))
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A': // Up arrow
				cursor = moveCursor(cursor, -1, len(names))
			case 'B': // Down arrow
				cursor = moveCursor(cursor, 1, len(names))
			}
		}

		lines := len(names) + 2
		fmt.Printf("\x1b[%dA", lines)
		renderList()
	}
}

func moveCursor(cursor, delta, n int) int {
	cursor += delta
	if cursor < 0 {
		return 0
	}
	if cursor > n-1 {
		return n - 1
	}
	return cursor
}
