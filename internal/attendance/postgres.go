package attendance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

const recordColumns = `id, student_id, date, student_name, class, id_unik, check_in, duha, zuhur, ashar, check_out, status, version, updated_at`

// maxApplyAttempts bounds retries when a concurrent first write of the day
// wins the insert race.
const maxApplyAttempts = 3

var slotColumns = map[Slot]string{
	SlotCheckIn:  "check_in",
	SlotDuha:     "duha",
	SlotZuhur:    "zuhur",
	SlotAshar:    "ashar",
	SlotCheckOut: "check_out",
}

// PostgresStore persists day records in Postgres. Apply locks the row with
// SELECT ... FOR UPDATE inside a transaction, so two stations scanning the
// same student and slot serialize and the second sees the first's value.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.StudentID, &r.Date, &r.StudentName, &r.Class, &r.IDUnik,
		&r.CheckIn, &r.Duha, &r.Zuhur, &r.Ashar, &r.CheckOut, &r.Status, &r.Version, &r.UpdatedAt)
	return r, err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, errors.Wrap(err, "get attendance record")
}

func (s *PostgresStore) Apply(ctx context.Context, key string, fn MutateFunc) (Record, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		rec, retry, err := s.applyOnce(ctx, key, fn)
		if !retry {
			return rec, err
		}
	}
	return Record{}, ErrContention
}

func (s *PostgresStore) applyOnce(ctx context.Context, key string, fn MutateFunc) (Record, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1 FOR UPDATE`, key))
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		cur, exists = Record{}, false
	} else if err != nil {
		return Record{}, false, errors.Wrap(err, "lock attendance record")
	}

	patch, err := fn(cur, exists)
	if err != nil {
		return Record{}, false, err
	}
	col, ok := slotColumns[patch.Slot]
	if !ok {
		return Record{}, false, errors.Errorf("unknown slot %q", patch.Slot)
	}

	if exists {
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`
			UPDATE attendance_records
			SET %s = $2, status = $3, student_name = $4, class = $5, id_unik = $6,
				version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING version, updated_at
		`, col), key, patch.Value, patch.Status, patch.StudentName, patch.Class, patch.IDUnik).Scan(&cur.Version, &cur.UpdatedAt)
		if err != nil {
			return Record{}, false, errors.Wrap(err, "update attendance record")
		}
	} else {
		err = tx.QueryRowContext(ctx, fmt.Sprintf(`
			INSERT INTO attendance_records (id, student_id, date, student_name, class, id_unik, status, %s, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, NOW())
			ON CONFLICT (id) DO NOTHING
			RETURNING version, updated_at
		`, col), key, patch.StudentID, patch.Date, patch.StudentName, patch.Class, patch.IDUnik, patch.Status, patch.Value).Scan(&cur.Version, &cur.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			// another station created the day first; re-read under lock
			return Record{}, true, nil
		}
		if err != nil {
			return Record{}, false, errors.Wrap(err, "insert attendance record")
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, errors.Wrap(err, "commit")
	}
	cur.Apply(key, patch, exists)
	return cur, false, nil
}

func (s *PostgresStore) ListByDate(ctx context.Context, date, class string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE date = $1`
	args := []any{date}
	if class != "" {
		query += ` AND class = $2`
		args = append(args, class)
	}
	query += ` ORDER BY student_name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list attendance records")
	}
	defer rows.Close()
	res := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan attendance record")
		}
		res = append(res, rec)
	}
	return res, errors.Wrap(rows.Err(), "list attendance records")
}
