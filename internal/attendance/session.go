package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Session is an attendance checkpoint label as selected by the operator.
type Session string

const (
	SessionMasuk  Session = "Masuk"
	SessionDuha   Session = "Duha"
	SessionZuhur  Session = "Zuhur"
	SessionAshar  Session = "Ashar"
	SessionPulang Session = "Pulang"

	// Combined labels used when the station does not pre-select a session.
	// They resolve to a slot by wall-clock hour at scan time.
	SessionMasukDuha   Session = "Masuk/Duha"
	SessionAsharPulang Session = "Ashar/Pulang"
)

var sessions = []Session{
	SessionMasuk, SessionDuha, SessionZuhur, SessionAshar, SessionPulang,
	SessionMasukDuha, SessionAsharPulang,
}

// ParseSession matches a label case-insensitively against the closed set.
func ParseSession(label string) (Session, error) {
	label = strings.TrimSpace(label)
	for _, s := range sessions {
		if strings.EqualFold(label, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown session %q", label)
}

// IsPrayer reports whether s is one of the three prayer sessions.
func (s Session) IsPrayer() bool {
	return s == SessionDuha || s == SessionZuhur || s == SessionAshar
}

// Slot is the record field a session writes to.
type Slot string

const (
	SlotCheckIn  Slot = "checkIn"
	SlotDuha     Slot = "duha"
	SlotZuhur    Slot = "zuhur"
	SlotAshar    Slot = "ashar"
	SlotCheckOut Slot = "checkOut"
)

// Slots lists every slot in daily order.
var Slots = []Slot{SlotCheckIn, SlotDuha, SlotZuhur, SlotAshar, SlotCheckOut}

const (
	entryCutoffHour = 8
	exitCutoffHour  = 16
)

// ResolveSlot maps a session to its slot. Combined labels pick the earlier
// slot before the cutoff hour (08 for Masuk/Duha, 16 for Ashar/Pulang) of now.
func ResolveSlot(s Session, now time.Time) (Slot, error) {
	switch s {
	case SessionMasuk:
		return SlotCheckIn, nil
	case SessionDuha:
		return SlotDuha, nil
	case SessionZuhur:
		return SlotZuhur, nil
	case SessionAshar:
		return SlotAshar, nil
	case SessionPulang:
		return SlotCheckOut, nil
	case SessionMasukDuha:
		if now.Hour() < entryCutoffHour {
			return SlotCheckIn, nil
		}
		return SlotDuha, nil
	case SessionAsharPulang:
		if now.Hour() < exitCutoffHour {
			return SlotAshar, nil
		}
		return SlotCheckOut, nil
	}
	return "", fmt.Errorf("unknown session %q", s)
}

// SuggestSession proposes a session for the given minutes since midnight.
// Stations show it as the default; operators may override it.
func SuggestSession(minutes int) Session {
	switch {
	case minutes < 7*60+30:
		return SessionMasuk
	case minutes < 11*60:
		return SessionDuha
	case minutes < 14*60:
		return SessionZuhur
	case minutes < 16*60:
		return SessionAshar
	default:
		return SessionPulang
	}
}

// SuggestSessionAt is SuggestSession for a wall-clock reading.
func SuggestSessionAt(t time.Time) Session {
	return SuggestSession(t.Hour()*60 + t.Minute())
}
