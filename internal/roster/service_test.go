package roster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo wraps the memory roster, counting full-collection reads and
// optionally failing them.
type countingRepo struct {
	*MemoryRepository
	studentLists int
	teacherLists int
	fail         error
}

func (r *countingRepo) ListStudents(ctx context.Context) ([]Student, error) {
	r.studentLists++
	if r.fail != nil {
		return nil, r.fail
	}
	return r.MemoryRepository.ListStudents(ctx)
}

func (r *countingRepo) ListTeachers(ctx context.Context) ([]Teacher, error) {
	r.teacherLists++
	if r.fail != nil {
		return nil, r.fail
	}
	return r.MemoryRepository.ListTeachers(ctx)
}

type fakeClock struct{ now time.Time }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func seedStudent(id, name, idUnik string) Student {
	return Student{ID: id, Name: name, IDUnik: idUnik, Class: "7A", Gender: Female, Status: StatusActive}
}

func setup(t *testing.T) (*Service, *countingRepo, *fakeClock) {
	t.Helper()
	repo := &countingRepo{MemoryRepository: NewMemoryRepository()}
	ctx := context.Background()
	_, err := repo.CreateStudent(ctx, seedStudent("s1", "Aisyah", "15012"))
	require.NoError(t, err)
	_, err = repo.CreateStudent(ctx, seedStudent("s2", "Fatimah", "15013"))
	require.NoError(t, err)
	_, err = repo.CreateTeacher(ctx, Teacher{ID: "t1", Name: "Ustadz Hasan"})
	require.NoError(t, err)

	clock := newClock()
	svc := NewService(repo, repo, NewMemoryCache[Student](), NewMemoryCache[Teacher](), nil, Options{Now: clock.Now, ClassLimit: 1})
	return svc, repo, clock
}

func TestGetStudentsServesCacheWithinTTL(t *testing.T) {
	svc, repo, clock := setup(t)
	ctx := context.Background()

	first, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.studentLists)

	clock.Advance(10 * time.Minute)
	second, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.studentLists, "read inside TTL must not hit the store")

	clock.Advance(21 * time.Minute)
	_, err = svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.studentLists, "read after TTL must refetch once")
}

func TestGetStudentsForceRefresh(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	_, err = svc.GetStudents(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.studentLists)
}

func TestGetStudentsOrderedByName(t *testing.T) {
	svc, repo, _ := setup(t)
	_, err := repo.CreateStudent(context.Background(), seedStudent("s0", "Zainab", "15001"))
	require.NoError(t, err)

	got, err := svc.GetStudents(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Aisyah", "Fatimah", "Zainab"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestStaleCacheServedOnFetchError(t *testing.T) {
	svc, repo, clock := setup(t)
	ctx := context.Background()

	first, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)

	repo.fail = errors.New("offline")
	clock.Advance(2 * time.Hour)
	got, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, 2, repo.studentLists)
}

func TestEmptyRosterWhenNothingCached(t *testing.T) {
	svc, repo, _ := setup(t)
	repo.fail = errors.New("offline")

	got, err := svc.GetTeachers(context.Background(), false)
	assert.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)

	created, err := svc.CreateStudent(ctx, Student{Name: "Maryam", IDUnik: "15020", Class: "7A", Gender: "perempuan"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, Female, created.Gender)
	assert.Equal(t, StatusActive, created.Status)

	got, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, repo.studentLists)

	created.Class = "7B"
	_, err = svc.UpdateStudent(ctx, created)
	require.NoError(t, err)
	_, err = svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.studentLists)

	require.NoError(t, svc.DeleteStudent(ctx, created.ID))
	got, err = svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 4, repo.studentLists)
}

func TestTeacherWritesInvalidateTeacherCacheOnly(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	_, err = svc.GetTeachers(ctx, false)
	require.NoError(t, err)

	tch, err := svc.CreateTeacher(ctx, Teacher{Name: "Ustadzah Khadijah", Gender: "P"})
	require.NoError(t, err)
	teachers, err := svc.GetTeachers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, teachers, 2)
	assert.Equal(t, 2, repo.teacherLists)

	_, err = svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.studentLists)

	require.NoError(t, svc.DeleteTeacher(ctx, tch.ID))
	assert.ErrorIs(t, svc.DeleteTeacher(ctx, tch.ID), ErrNotFound)
}

func TestFailedWriteKeepsCache(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteStudent(ctx, "missing"), ErrNotFound)

	_, err = svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.studentLists)
}

func TestCreateStudentValidation(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateStudent(ctx, Student{Name: "No Id", Gender: Female})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.CreateStudent(ctx, Student{Name: "Bad Gender", IDUnik: "1", Gender: "x"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.CreateStudent(ctx, Student{Name: "Copy", IDUnik: "15012", Gender: Male})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetStudentsByClassBypassesCacheAndCaps(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	got, err := svc.GetStudentsByClass(ctx, "7A")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, repo.studentLists)

	_, err = svc.GetStudentsByClass(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalid)
}

// gatedRepo takes its ListStudents snapshot, then blocks until released.
type gatedRepo struct {
	*MemoryRepository
	taken   chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedRepo) ListStudents(ctx context.Context) ([]Student, error) {
	snap, err := r.MemoryRepository.ListStudents(ctx)
	r.once.Do(func() {
		close(r.taken)
		<-r.release
	})
	return snap, err
}

func TestWriteDuringFetchIsNotMaskedBySnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &gatedRepo{MemoryRepository: NewMemoryRepository(), taken: make(chan struct{}), release: make(chan struct{})}
	_, err := repo.CreateStudent(ctx, seedStudent("s1", "Aisyah", "15012"))
	require.NoError(t, err)
	clock := newClock()
	svc := NewService(repo, repo, NewMemoryCache[Student](), NewMemoryCache[Teacher](), nil, Options{Now: clock.Now})

	done := make(chan []Student)
	go func() {
		got, _ := svc.GetStudents(ctx, false)
		done <- got
	}()
	<-repo.taken
	_, err = svc.CreateStudent(ctx, seedStudent("s2", "Fatimah", "15013"))
	require.NoError(t, err)
	close(repo.release)
	assert.Len(t, <-done, 1, "the in-flight read still answers with what it fetched")

	clock.Advance(time.Minute)
	got, err := svc.GetStudents(ctx, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
