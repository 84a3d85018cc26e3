package receipt

import (
	"fmt"
	"os"
	"path/filepath"
)

// ESC/POS command sequences.
var (
	escInit = []byte{0x1b, 0x40}       // initialize printer
	escFeed = []byte{0x1b, 0x64, 0x06} // feed 6 lines
	escCut  = []byte{0x1d, 0x56, 0x00} // full cut
)

// devicePatterns are the serial device paths scanned for a printer, in
// preference order.
var devicePatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/usb/lp*",
	"/dev/serial/by-id/*",
}

// FindPrinter scans the common serial device paths and returns the first
// one that accepts an ESC/POS init probe.
func FindPrinter() (string, error) {
	for _, pattern := range devicePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, path := range matches {
			if probe(path) == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("no ESC/POS printer found on serial ports")
}

// probe opens the device and sends an init sequence. Failure means the
// path is likely not a printer.
func probe(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(escInit); err != nil {
		return err
	}
	return nil
}

// Print renders the receipt and sends it to the device at path, followed
// by a feed and cut.
func Print(path string, r *Receipt) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open printer %s: %w", path, err)
	}
	defer f.Close()

	payload := append([]byte{}, escInit...)
	payload = append(payload, []byte(r.Render())...)
	payload = append(payload, escFeed...)
	payload = append(payload, escCut...)

	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("write to printer %s: %w", path, err)
	}
	return nil
}
