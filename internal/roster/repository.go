package roster

import "context"

// StudentRepository is the thin persistence contract for the students collection.
type StudentRepository interface {
	GetStudent(ctx context.Context, id string) (Student, error)
	FindStudent(ctx context.Context, field StudentField, value string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	ListStudentsByClass(ctx context.Context, class string, limit int) ([]Student, error)
	CreateStudent(ctx context.Context, st Student) (Student, error)
	UpdateStudent(ctx context.Context, st Student) (Student, error)
	DeleteStudent(ctx context.Context, id string) error
}

// TeacherRepository is the thin persistence contract for the teachers collection.
type TeacherRepository interface {
	ListTeachers(ctx context.Context) ([]Teacher, error)
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	DeleteTeacher(ctx context.Context, id string) error
}

// Repository covers both collections; every backend implements it.
type Repository interface {
	StudentRepository
	TeacherRepository
}
