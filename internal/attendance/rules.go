package attendance

import (
	"errors"

	"presensi/internal/roster"
)

var (
	// ErrHaidSession rejects haid mode outside the prayer sessions.
	ErrHaidSession = errors.New("attendance: haid mode only during prayer sessions")
	// ErrHaidGender rejects haid mode for male students.
	ErrHaidGender = errors.New("attendance: haid mode only for female students")
)

// ValidateHaid checks whether menstrual leave may be recorded for a student
// of gender g at session s. Combined labels are never prayer sessions, even
// when they would resolve to a prayer slot.
func ValidateHaid(s Session, g roster.Gender) error {
	if !s.IsPrayer() {
		return ErrHaidSession
	}
	if g != roster.Female {
		return ErrHaidGender
	}
	return nil
}

// deriveStatus applies the day-status rules for a write of value to slot.
// Haid overrides everything. Only an entry write promotes the day to Hadir or
// Terlambat, and only from an unset, Alpha, Hadir or Terlambat day; Sakit,
// Izin and Haid stand. A day with no status yet defaults to Alpha.
func deriveStatus(cur Status, slot Slot, value string, haid bool, lateThreshold string) Status {
	if haid {
		return StatusHaid
	}
	if slot == SlotCheckIn {
		switch cur {
		case "", StatusAlpha, StatusHadir, StatusTerlambat:
			if value > lateThreshold {
				return StatusTerlambat
			}
			return StatusHadir
		}
	}
	if cur == "" {
		return StatusAlpha
	}
	return cur
}
