package roster

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"presensi/internal/metrics"
)

// Options tunes cache lifetimes and query caps.
type Options struct {
	StudentTTL time.Duration
	TeacherTTL time.Duration
	ClassLimit int
	Now        func() time.Time
}

// Service serves roster reads through the cache and drops the cache on every
// successful write.
type Service struct {
	students     StudentRepository
	teachers     TeacherRepository
	studentCache Cache[Student]
	teacherCache Cache[Teacher]
	log          *zap.Logger
	opts         Options
}

// NewService wires repositories and caches together.
func NewService(students StudentRepository, teachers TeacherRepository, studentCache Cache[Student], teacherCache Cache[Teacher], log *zap.Logger, opts Options) *Service {
	if opts.StudentTTL <= 0 {
		opts.StudentTTL = 30 * time.Minute
	}
	if opts.TeacherTTL <= 0 {
		opts.TeacherTTL = 60 * time.Minute
	}
	if opts.ClassLimit <= 0 {
		opts.ClassLimit = 500
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		students:     students,
		teachers:     teachers,
		studentCache: studentCache,
		teacherCache: teacherCache,
		log:          log,
		opts:         opts,
	}
}

// GetStudents returns the full student roster ordered by name.
//
// A fresh snapshot is served without touching the store unless force is set.
// When the store fails, the last snapshot is served even if expired; with no
// snapshot at all an empty roster is returned together with the fetch error.
func (s *Service) GetStudents(ctx context.Context, force bool) ([]Student, error) {
	return readThrough(ctx, s, "students", s.studentCache, s.opts.StudentTTL, force, s.students.ListStudents)
}

// GetTeachers is GetStudents for the teacher roster.
func (s *Service) GetTeachers(ctx context.Context, force bool) ([]Teacher, error) {
	return readThrough(ctx, s, "teachers", s.teacherCache, s.opts.TeacherTTL, force, s.teachers.ListTeachers)
}

// GetStudentsByClass reads one class straight from the store, capped at the
// configured limit. It never touches the cache.
func (s *Service) GetStudentsByClass(ctx context.Context, class string) ([]Student, error) {
	class = strings.TrimSpace(class)
	if class == "" {
		return nil, errors.Join(ErrInvalid, errors.New("class is required"))
	}
	return s.students.ListStudentsByClass(ctx, class, s.opts.ClassLimit)
}

// GetStudent loads one student by internal id.
func (s *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return s.students.GetStudent(ctx, id)
}

func readThrough[T any](ctx context.Context, s *Service, roster string, cache Cache[T], ttl time.Duration, force bool, fetch func(context.Context) ([]T, error)) ([]T, error) {
	now := s.opts.Now()
	entry, ok, err := cache.Get(ctx)
	if err != nil {
		s.log.Warn("roster cache read failed", zap.String("roster", roster), zap.Error(err))
		ok = false
	}
	if ok && !force && !entry.IsExpired(now, ttl) {
		metrics.RosterCache.WithLabelValues(roster, "hit").Inc()
		return nonNil(entry.Items), nil
	}

	gen, genErr := cache.Generation(ctx)
	if genErr != nil {
		s.log.Warn("roster cache generation unavailable", zap.String("roster", roster), zap.Error(genErr))
	}

	items, err := fetch(ctx)
	if err != nil {
		if ok {
			metrics.RosterCache.WithLabelValues(roster, "stale").Inc()
			s.log.Warn("roster fetch failed, serving cached snapshot",
				zap.String("roster", roster), zap.Time("refreshed_at", entry.RefreshedAt), zap.Error(err))
			return nonNil(entry.Items), nil
		}
		metrics.RosterCache.WithLabelValues(roster, "empty").Inc()
		s.log.Error("roster fetch failed with no cached snapshot", zap.String("roster", roster), zap.Error(err))
		return []T{}, err
	}

	metrics.RosterCache.WithLabelValues(roster, "miss").Inc()
	items = nonNil(items)
	if genErr != nil {
		return items, nil
	}
	stored, err := cache.Set(ctx, Entry[T]{Items: items, RefreshedAt: now}, gen)
	switch {
	case err != nil:
		s.log.Warn("roster cache write failed", zap.String("roster", roster), zap.Error(err))
	case !stored:
		s.log.Debug("roster changed during fetch, snapshot not cached", zap.String("roster", roster))
	}
	return items, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// CreateStudent validates and stores a new student. idUnik and NISN must not
// already belong to another student.
func (s *Service) CreateStudent(ctx context.Context, st Student) (Student, error) {
	if err := st.normalize(); err != nil {
		return Student{}, err
	}
	if err := s.checkUnique(ctx, st); err != nil {
		return Student{}, err
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := s.opts.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	out, err := s.students.CreateStudent(ctx, st)
	if err != nil {
		return Student{}, err
	}
	s.invalidateStudents(ctx)
	return out, nil
}

// UpdateStudent replaces the mutable fields of an existing student.
func (s *Service) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		return Student{}, errors.Join(ErrInvalid, errors.New("id is required"))
	}
	if err := st.normalize(); err != nil {
		return Student{}, err
	}
	if err := s.checkUnique(ctx, st); err != nil {
		return Student{}, err
	}
	st.UpdatedAt = s.opts.Now().UTC()
	out, err := s.students.UpdateStudent(ctx, st)
	if err != nil {
		return Student{}, err
	}
	s.invalidateStudents(ctx)
	return out, nil
}

// DeleteStudent removes a student. Attendance records are left in place.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	if err := s.students.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.invalidateStudents(ctx)
	return nil
}

func (s *Service) CreateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	if err := t.normalize(); err != nil {
		return Teacher{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.opts.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	out, err := s.teachers.CreateTeacher(ctx, t)
	if err != nil {
		return Teacher{}, err
	}
	s.invalidateTeachers(ctx)
	return out, nil
}

func (s *Service) UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error) {
	if t.ID == "" {
		return Teacher{}, errors.Join(ErrInvalid, errors.New("id is required"))
	}
	if err := t.normalize(); err != nil {
		return Teacher{}, err
	}
	t.UpdatedAt = s.opts.Now().UTC()
	out, err := s.teachers.UpdateTeacher(ctx, t)
	if err != nil {
		return Teacher{}, err
	}
	s.invalidateTeachers(ctx)
	return out, nil
}

func (s *Service) DeleteTeacher(ctx context.Context, id string) error {
	if err := s.teachers.DeleteTeacher(ctx, id); err != nil {
		return err
	}
	s.invalidateTeachers(ctx)
	return nil
}

func (s *Service) checkUnique(ctx context.Context, st Student) error {
	lookups := []struct {
		field StudentField
		value string
	}{{FieldIDUnik, st.IDUnik}, {FieldNISN, st.NISN}}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		other, err := s.students.FindStudent(ctx, l.field, l.value)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if other.ID != st.ID {
			return ErrDuplicate
		}
	}
	return nil
}

func (s *Service) invalidateStudents(ctx context.Context) {
	if err := s.studentCache.Invalidate(ctx); err != nil {
		s.log.Error("student cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) invalidateTeachers(ctx context.Context) {
	if err := s.teacherCache.Invalidate(ctx); err != nil {
		s.log.Error("teacher cache invalidation failed", zap.Error(err))
	}
}
