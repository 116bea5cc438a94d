// Package qrcard renders the QR code printed on student cards.
package qrcard

import (
	"errors"
	"strings"

	"github.com/skip2/go-qrcode"

	"presensi/internal/roster"
)

const (
	DefaultSize = 256
	minSize     = 64
	maxSize     = 1024
)

// ErrNoPayload is returned for a student with neither idUnik nor id.
var ErrNoPayload = errors.New("qrcard: student has no scannable identifier")

// Payload is what the card encodes: idUnik, or the internal id when the
// student has none. Both resolve at the scanner.
func Payload(st roster.Student) (string, error) {
	if v := strings.TrimSpace(st.IDUnik); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(st.ID); v != "" {
		return v, nil
	}
	return "", ErrNoPayload
}

// PNG renders the student's payload at size pixels square, clamped to a
// printable range.
func PNG(st roster.Student, size int) ([]byte, error) {
	payload, err := Payload(st)
	if err != nil {
		return nil, err
	}
	switch {
	case size <= 0:
		size = DefaultSize
	case size < minSize:
		size = minSize
	case size > maxSize:
		size = maxSize
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
