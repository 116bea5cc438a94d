package queue

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"presensi/internal/attendance"
)

// TypeScan marks an offline scan replayed through the worker.
const TypeScan = "scan"

// ScanMessage is one scan taken while a station was offline, with the time
// it was taken.
type ScanMessage struct {
	Scan      attendance.Scan `json:"scan"`
	ScannedAt time.Time       `json:"scannedAt"`
}

// NewScanMessage wraps a scan for the queue.
func NewScanMessage(scan attendance.Scan, at time.Time) (Message, error) {
	body, err := json.Marshal(ScanMessage{Scan: scan, ScannedAt: at})
	if err != nil {
		return Message{}, errors.Wrap(err, "encode scan")
	}
	return Message{Type: TypeScan, Body: body}, nil
}

// DecodeScan unwraps a scan message.
func DecodeScan(msg Message) (ScanMessage, error) {
	if msg.Type != TypeScan {
		return ScanMessage{}, errors.Errorf("not a scan message: %q", msg.Type)
	}
	var sm ScanMessage
	if err := json.Unmarshal(msg.Body, &sm); err != nil {
		return ScanMessage{}, errors.Wrap(err, "decode scan")
	}
	if sm.ScannedAt.IsZero() {
		return ScanMessage{}, errors.New("scan time missing")
	}
	return sm, nil
}
