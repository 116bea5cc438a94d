package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presensi/internal/roster"
)

func TestParseSession(t *testing.T) {
	s, err := ParseSession(" zuhur ")
	require.NoError(t, err)
	assert.Equal(t, SessionZuhur, s)

	s, err = ParseSession("ashar/pulang")
	require.NoError(t, err)
	assert.Equal(t, SessionAsharPulang, s)

	_, err = ParseSession("Maghrib")
	assert.Error(t, err)
}

func TestResolveSlot(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 10, 14, h, m, 0, 0, wib) }
	cases := []struct {
		session Session
		now     time.Time
		want    Slot
	}{
		{SessionMasuk, at(6, 0), SlotCheckIn},
		{SessionDuha, at(6, 0), SlotDuha},
		{SessionZuhur, at(20, 0), SlotZuhur},
		{SessionAshar, at(9, 0), SlotAshar},
		{SessionPulang, at(9, 0), SlotCheckOut},
		{SessionMasukDuha, at(7, 59), SlotCheckIn},
		{SessionMasukDuha, at(8, 0), SlotDuha},
		{SessionAsharPulang, at(15, 59), SlotAshar},
		{SessionAsharPulang, at(16, 0), SlotCheckOut},
	}
	for _, tc := range cases {
		got, err := ResolveSlot(tc.session, tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s at %s", tc.session, tc.now.Format("15:04"))
	}

	_, err := ResolveSlot("Isya", at(19, 0))
	assert.Error(t, err)
}

func TestSuggestSession(t *testing.T) {
	assert.Equal(t, SessionMasuk, SuggestSession(0))
	assert.Equal(t, SessionMasuk, SuggestSession(449))
	assert.Equal(t, SessionDuha, SuggestSession(450))
	assert.Equal(t, SessionDuha, SuggestSession(659))
	assert.Equal(t, SessionZuhur, SuggestSession(660))
	assert.Equal(t, SessionAshar, SuggestSession(840))
	assert.Equal(t, SessionPulang, SuggestSession(960))
	assert.Equal(t, SessionZuhur, SuggestSessionAt(time.Date(2026, 10, 14, 12, 5, 0, 0, wib)))
}

func TestValidateHaid(t *testing.T) {
	for _, s := range []Session{SessionDuha, SessionZuhur, SessionAshar} {
		assert.NoError(t, ValidateHaid(s, roster.Female), s)
		assert.ErrorIs(t, ValidateHaid(s, roster.Male), ErrHaidGender, s)
	}
	for _, s := range []Session{SessionMasuk, SessionPulang, SessionMasukDuha, SessionAsharPulang} {
		assert.ErrorIs(t, ValidateHaid(s, roster.Female), ErrHaidSession, s)
	}
	// session is checked first
	assert.ErrorIs(t, ValidateHaid(SessionMasuk, roster.Male), ErrHaidSession)
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		cur  Status
		slot Slot
		val  string
		haid bool
		want Status
	}{
		{"first entry on time", "", SlotCheckIn, "07:00:00", false, StatusHadir},
		{"first entry late", "", SlotCheckIn, "07:31:00", false, StatusTerlambat},
		{"entry over alpha", StatusAlpha, SlotCheckIn, "07:10:00", false, StatusHadir},
		{"entry keeps sakit", StatusSakit, SlotCheckIn, "07:10:00", false, StatusSakit},
		{"entry keeps izin", StatusIzin, SlotCheckIn, "07:10:00", false, StatusIzin},
		{"entry keeps haid", StatusHaid, SlotCheckIn, "07:10:00", false, StatusHaid},
		{"prayer on empty day", "", SlotDuha, "09:00:00", false, StatusAlpha},
		{"prayer keeps late", StatusTerlambat, SlotZuhur, "12:10:00", false, StatusTerlambat},
		{"checkout keeps hadir", StatusHadir, SlotCheckOut, "16:10:00", false, StatusHadir},
		{"haid overrides", StatusHadir, SlotZuhur, "12:05:00", true, StatusHaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveStatus(tc.cur, tc.slot, tc.val, tc.haid, "07:30:00"))
		})
	}
}

func TestSlotValues(t *testing.T) {
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue("-"))
	assert.False(t, IsEmptyValue("07:15:00"))
	assert.True(t, IsHaidValue("12:05 H"))
	assert.False(t, IsHaidValue("12:05:00"))
	assert.False(t, IsHaidValue(" H"))
	assert.Equal(t, "s1_2026-10-14", RecordKey("s1", "2026-10-14"))
}
