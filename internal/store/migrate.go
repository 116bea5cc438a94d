package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// schema is idempotent; slot columns default to '' so an unwritten slot reads
// as empty.
const schema = `
CREATE TABLE IF NOT EXISTS students (
	id          TEXT PRIMARY KEY,
	school_id   TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	id_unik     TEXT NOT NULL UNIQUE,
	nisn        TEXT NOT NULL DEFAULT '',
	class       TEXT NOT NULL DEFAULT '',
	gender      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'Aktif',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_students_nisn ON students(nisn) WHERE nisn <> '';
CREATE INDEX IF NOT EXISTS idx_students_class_name ON students(class, name);

CREATE TABLE IF NOT EXISTS teachers (
	id          TEXT PRIMARY KEY,
	school_id   TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL,
	nip         TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	gender      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'Aktif',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL,
	date         TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	class        TEXT NOT NULL DEFAULT '',
	id_unik      TEXT NOT NULL DEFAULT '',
	check_in     TEXT NOT NULL DEFAULT '',
	duha         TEXT NOT NULL DEFAULT '',
	zuhur        TEXT NOT NULL DEFAULT '',
	ashar        TEXT NOT NULL DEFAULT '',
	check_out    TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'Alpha',
	version      BIGINT NOT NULL DEFAULT 1,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_attendance_date_class ON attendance_records(date, class);
CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id);
`

// Migrate creates the tables the Postgres backend needs.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate")
}
