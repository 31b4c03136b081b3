// Package qr renders strings as scannable QR symbols.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Level is the QR error-correction level. Higher levels survive more damage
// but shrink the usable capacity, so share links default to Low.
type Level = qrcode.RecoveryLevel

const (
	Low     Level = qrcode.Low
	Medium  Level = qrcode.Medium
	High    Level = qrcode.High
	Highest Level = qrcode.Highest
)

// PNG renders content as a size x size pixel PNG. It fails when the content
// exceeds QR capacity at the requested level.
func PNG(content string, level Level, size int) ([]byte, error) {
	png, err := qrcode.Encode(content, level, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// Terminal renders content as a half-block string suitable for printing to
// a terminal.
func Terminal(content string, level Level) (string, error) {
	q, err := qrcode.New(content, level)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return q.ToSmallString(false), nil
}
