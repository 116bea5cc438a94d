package attendance

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordCols = []string{"id", "student_id", "date", "student_name", "class", "id_unik",
	"check_in", "duha", "zuhur", "ashar", "check_out", "status", "version", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func checkInPatch(cur Record, _ bool) (Patch, error) {
	if !IsEmptyValue(cur.CheckIn) {
		return Patch{}, ErrAlreadyRecorded
	}
	return Patch{StudentID: "s1", Date: "2026-10-14", StudentName: "Aisyah", Class: "7A", IDUnik: "15012",
		Slot: SlotCheckIn, Value: "07:15:00", Status: StatusHadir}, nil
}

func TestPostgresApplyCreatesRecord(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 14, 0, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM attendance_records WHERE id = $1 FOR UPDATE`)).
		WithArgs("s1_2026-10-14").
		WillReturnRows(sqlmock.NewRows(recordCols))
	mock.ExpectQuery(`INSERT INTO attendance_records \(.*check_in, version, updated_at\)`).
		WithArgs("s1_2026-10-14", "s1", "2026-10-14", "Aisyah", "7A", "15012", "Hadir", "07:15:00").
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(1), at))
	mock.ExpectCommit()

	rec, err := store.Apply(context.Background(), "s1_2026-10-14", checkInPatch)
	require.NoError(t, err)
	assert.Equal(t, "s1_2026-10-14", rec.ID)
	assert.Equal(t, "07:15:00", rec.CheckIn)
	assert.Equal(t, StatusHadir, rec.Status)
	assert.EqualValues(t, 1, rec.Version)
	assert.Equal(t, at, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyUpdatesSlotColumn(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 14, 5, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow("s1_2026-10-14", "s1", "2026-10-14", "Aisyah", "7A", "15012",
			"07:15:00", "", "", "", "", "Hadir", int64(1), at))
	mock.ExpectQuery(`UPDATE attendance_records\s+SET zuhur = \$2`).
		WithArgs("s1_2026-10-14", "12:05 H", "Haid", "Aisyah", "7A", "15012").
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(int64(2), at))
	mock.ExpectCommit()

	rec, err := store.Apply(context.Background(), "s1_2026-10-14", func(cur Record, exists bool) (Patch, error) {
		require.True(t, exists)
		return Patch{StudentName: cur.StudentName, Class: cur.Class, IDUnik: cur.IDUnik,
			Slot: SlotZuhur, Value: "12:05 H", Status: StatusHaid}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "07:15:00", rec.CheckIn)
	assert.Equal(t, "12:05 H", rec.Zuhur)
	assert.Equal(t, "s1", rec.StudentID)
	assert.EqualValues(t, 2, rec.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresApplyRetriesLostInsertRace(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 14, 0, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows(recordCols))
	mock.ExpectQuery(`INSERT INTO attendance_records`).WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow("s1_2026-10-14", "s1", "2026-10-14", "Aisyah", "7A", "15012",
			"07:14:59", "", "", "", "", "Hadir", int64(1), at))
	mock.ExpectRollback()

	_, err := store.Apply(context.Background(), "s1_2026-10-14", checkInPatch)
	assert.ErrorIs(t, err, ErrAlreadyRecorded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByDateFiltersClass(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 14, 0, 15, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE date = $1 AND class = $2 ORDER BY student_name, id`)).
		WithArgs("2026-10-14", "7A").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow("s1_2026-10-14", "s1", "2026-10-14", "Aisyah", "7A", "15012",
			"07:15:00", "", "", "", "", "Hadir", int64(1), at))

	recs, err := store.ListByDate(context.Background(), "2026-10-14", "7A")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Aisyah", recs[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM attendance_records WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(recordCols))

	_, err := store.Get(context.Background(), "s9_2026-10-14")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
