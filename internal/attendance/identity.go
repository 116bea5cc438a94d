package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"presensi/internal/roster"
)

// ErrUnreadable is returned for a payload that is empty once sanitized.
var ErrUnreadable = errors.New("attendance: unreadable code")

// NotRegisteredError carries the sanitized code that matched no student.
type NotRegisteredError struct {
	Code string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("ID %q TIDAK TERDAFTAR", e.Code)
}

// StudentLookup is the read-only slice of the roster the resolver needs.
type StudentLookup interface {
	GetStudent(ctx context.Context, id string) (roster.Student, error)
	FindStudent(ctx context.Context, field roster.StudentField, value string) (roster.Student, error)
}

// SanitizeCode strips C0 and C1 control characters (scanner suffixes,
// stray CR/LF) and surrounding whitespace from a raw scan.
func SanitizeCode(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}

// IdentityResolver maps a scanned code to a student.
type IdentityResolver struct {
	students StudentLookup
}

// NewIdentityResolver creates a resolver over a student lookup.
func NewIdentityResolver(students StudentLookup) *IdentityResolver {
	return &IdentityResolver{students: students}
}

// Resolve tries the code as the document key, then as idUnik, then as NISN.
// The first match wins.
func (r *IdentityResolver) Resolve(ctx context.Context, raw string) (roster.Student, error) {
	code := SanitizeCode(raw)
	if code == "" {
		return roster.Student{}, ErrUnreadable
	}

	st, err := r.students.GetStudent(ctx, code)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, roster.ErrNotFound) {
		return roster.Student{}, err
	}

	for _, field := range []roster.StudentField{roster.FieldIDUnik, roster.FieldNISN} {
		st, err := r.students.FindStudent(ctx, field, code)
		if err == nil {
			return st, nil
		}
		if !errors.Is(err, roster.ErrNotFound) {
			return roster.Student{}, err
		}
	}
	return roster.Student{}, &NotRegisteredError{Code: code}
}
