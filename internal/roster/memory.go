package roster

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepository keeps both collections in process. Used by the memory
// backend and by tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	students map[string]Student
	teachers map[string]Teacher
}

// NewMemoryRepository creates an empty in-memory roster.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students: make(map[string]Student),
		teachers: make(map[string]Teacher),
	}
}

func (r *MemoryRepository) GetStudent(_ context.Context, id string) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.students[id]; ok {
		return st, nil
	}
	return Student{}, ErrNotFound
}

func (r *MemoryRepository) FindStudent(_ context.Context, field StudentField, value string) (Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, st := range r.sortedStudents() {
		switch field {
		case FieldIDUnik:
			if st.IDUnik == value {
				return st, nil
			}
		case FieldNISN:
			if st.NISN == value {
				return st, nil
			}
		}
	}
	return Student{}, ErrNotFound
}

func (r *MemoryRepository) ListStudents(_ context.Context) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedStudents(), nil
}

func (r *MemoryRepository) ListStudentsByClass(_ context.Context, class string, limit int) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := []Student{}
	for _, st := range r.sortedStudents() {
		if st.Class != class {
			continue
		}
		if limit > 0 && len(res) >= limit {
			break
		}
		res = append(res, st)
	}
	return res, nil
}

func (r *MemoryRepository) CreateStudent(_ context.Context, st Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[st.ID]; ok {
		return Student{}, ErrDuplicate
	}
	r.students[st.ID] = st
	return st, nil
}

func (r *MemoryRepository) UpdateStudent(_ context.Context, st Student) (Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.students[st.ID]
	if !ok {
		return Student{}, ErrNotFound
	}
	st.CreatedAt = prev.CreatedAt
	r.students[st.ID] = st
	return st, nil
}

func (r *MemoryRepository) DeleteStudent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return ErrNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *MemoryRepository) ListTeachers(_ context.Context) ([]Teacher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]Teacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return lessName(res[i].Name, res[j].Name, res[i].ID, res[j].ID) })
	return res, nil
}

func (r *MemoryRepository) CreateTeacher(_ context.Context, t Teacher) (Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[t.ID]; ok {
		return Teacher{}, ErrDuplicate
	}
	r.teachers[t.ID] = t
	return t, nil
}

func (r *MemoryRepository) UpdateTeacher(_ context.Context, t Teacher) (Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.teachers[t.ID]
	if !ok {
		return Teacher{}, ErrNotFound
	}
	t.CreatedAt = prev.CreatedAt
	r.teachers[t.ID] = t
	return t, nil
}

func (r *MemoryRepository) DeleteTeacher(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teachers[id]; !ok {
		return ErrNotFound
	}
	delete(r.teachers, id)
	return nil
}

// sortedStudents must be called with the lock held.
func (r *MemoryRepository) sortedStudents() []Student {
	res := make([]Student, 0, len(r.students))
	for _, st := range r.students {
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return lessName(res[i].Name, res[j].Name, res[i].ID, res[j].ID) })
	return res
}

func lessName(a, b, idA, idB string) bool {
	if la, lb := strings.ToLower(a), strings.ToLower(b); la != lb {
		return la < lb
	}
	return idA < idB
}
