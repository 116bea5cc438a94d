package roster

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

const studentColumns = `id, school_id, name, id_unik, nisn, class, gender, status, created_at, updated_at`

const teacherColumns = `id, school_id, name, nip, subject, gender, status, created_at, updated_at`

// PostgresRepository persists the roster in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.SchoolID, &st.Name, &st.IDUnik, &st.NISN, &st.Class, &st.Gender, &st.Status, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

func scanTeacher(row scanner) (Teacher, error) {
	var t Teacher
	err := row.Scan(&t.ID, &t.SchoolID, &t.Name, &t.NIP, &t.Subject, &t.Gender, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PostgresRepository) GetStudent(ctx context.Context, id string) (Student, error) {
	st, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, errors.Wrap(err, "get student")
}

func (r *PostgresRepository) FindStudent(ctx context.Context, field StudentField, value string) (Student, error) {
	var column string
	switch field {
	case FieldIDUnik:
		column = "id_unik"
	case FieldNISN:
		column = "nisn"
	default:
		return Student{}, errors.Errorf("find student: unsupported field %q", field)
	}
	st, err := scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE `+column+` = $1 ORDER BY name LIMIT 1`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, errors.Wrap(err, "find student")
}

func (r *PostgresRepository) ListStudents(ctx context.Context) ([]Student, error) {
	return r.queryStudents(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name, id`)
}

func (r *PostgresRepository) ListStudentsByClass(ctx context.Context, class string, limit int) ([]Student, error) {
	return r.queryStudents(ctx, `SELECT `+studentColumns+` FROM students WHERE class = $1 ORDER BY name, id LIMIT $2`, class, limit)
}

func (r *PostgresRepository) queryStudents(ctx context.Context, query string, args ...any) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	defer rows.Close()
	res := []Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan student")
		}
		res = append(res, st)
	}
	return res, errors.Wrap(rows.Err(), "list students")
}

func (r *PostgresRepository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, st.ID, st.SchoolID, st.Name, st.IDUnik, st.NISN, st.Class, st.Gender, st.Status, st.CreatedAt, st.UpdatedAt)
	if isUniqueViolation(err) {
		return Student{}, ErrDuplicate
	}
	if err != nil {
		return Student{}, errors.Wrap(err, "create student")
	}
	return st, nil
}

func (r *PostgresRepository) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET school_id = $2, name = $3, id_unik = $4, nisn = $5, class = $6, gender = $7, status = $8, updated_at = $9
		WHERE id = $1
		RETURNING created_at
	`, st.ID, st.SchoolID, st.Name, st.IDUnik, st.NISN, st.Class, st.Gender, st.Status, st.UpdatedAt)
	err := row.Scan(&st.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Student{}, ErrNotFound
	case isUniqueViolation(err):
		return Student{}, ErrDuplicate
	case err != nil:
		return Student{}, errors.Wrap(err, "update student")
	}
	return st, nil
}

func (r *PostgresRepository) DeleteStudent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM students WHERE id = $1`, id)
}

func (r *PostgresRepository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list teachers")
	}
	defer rows.Close()
	res := []Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan teacher")
		}
		res = append(res, t)
	}
	return res, errors.Wrap(rows.Err(), "list teachers")
}

func (r *PostgresRepository) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (`+teacherColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.SchoolID, t.Name, t.NIP, t.Subject, t.Gender, t.Status, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return Teacher{}, ErrDuplicate
	}
	if err != nil {
		return Teacher{}, errors.Wrap(err, "create teacher")
	}
	return t, nil
}

func (r *PostgresRepository) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE teachers
		SET school_id = $2, name = $3, nip = $4, subject = $5, gender = $6, status = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at
	`, t.ID, t.SchoolID, t.Name, t.NIP, t.Subject, t.Gender, t.Status, t.UpdatedAt)
	if err := row.Scan(&t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Teacher{}, ErrNotFound
		}
		return Teacher{}, errors.Wrap(err, "update teacher")
	}
	return t, nil
}

func (r *PostgresRepository) DeleteTeacher(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM teachers WHERE id = $1`, id)
}

func (r *PostgresRepository) deleteByID(ctx context.Context, query, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
