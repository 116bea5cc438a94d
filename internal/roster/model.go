package roster

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by repositories when no document matches.
	ErrNotFound = errors.New("roster: not found")
	// ErrDuplicate is returned when a unique identifier is already taken.
	ErrDuplicate = errors.New("roster: duplicate identifier")
	// ErrInvalid is returned when a write fails validation.
	ErrInvalid = errors.New("roster: invalid record")
)

// Gender is the binary gender recorded on the roster, using the school's
// L (laki-laki) / P (perempuan) codes.
type Gender string

const (
	Male   Gender = "L"
	Female Gender = "P"
)

// ParseGender accepts the codes and the common spellings found in imports.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "laki-laki", "laki laki", "putra", "male", "m":
		return Male, nil
	case "p", "perempuan", "putri", "female", "f":
		return Female, nil
	}
	return "", errors.New("roster: unknown gender " + s)
}

// StudentStatus is the enrolment status of a student.
type StudentStatus string

const (
	StatusActive      StudentStatus = "Aktif"
	StatusGraduated   StudentStatus = "Lulus"
	StatusTransferred StudentStatus = "Pindah"
	StatusWithdrawn   StudentStatus = "Keluar"
	StatusInactive    StudentStatus = "NonAktif"
)

func (s StudentStatus) valid() bool {
	switch s {
	case StatusActive, StatusGraduated, StatusTransferred, StatusWithdrawn, StatusInactive:
		return true
	}
	return false
}

// StudentField names a secondary lookup field on the students collection.
type StudentField string

const (
	FieldIDUnik StudentField = "idUnik"
	FieldNISN   StudentField = "nisn"
)

// Student is a roster entry. The attendance engine only ever reads it.
type Student struct {
	ID        string        `json:"id" firestore:"-" bson:"_id"`
	SchoolID  string        `json:"schoolId" firestore:"schoolId" bson:"schoolId"`
	Name      string        `json:"name" firestore:"name" bson:"name"`
	IDUnik    string        `json:"idUnik" firestore:"idUnik" bson:"idUnik"`
	NISN      string        `json:"nisn" firestore:"nisn" bson:"nisn"`
	Class     string        `json:"class" firestore:"class" bson:"class"`
	Gender    Gender        `json:"gender" firestore:"gender" bson:"gender"`
	Status    StudentStatus `json:"status" firestore:"status" bson:"status"`
	CreatedAt time.Time     `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// Teacher is a roster entry for staff.
type Teacher struct {
	ID        string    `json:"id" firestore:"-" bson:"_id"`
	SchoolID  string    `json:"schoolId" firestore:"schoolId" bson:"schoolId"`
	Name      string    `json:"name" firestore:"name" bson:"name"`
	NIP       string    `json:"nip" firestore:"nip" bson:"nip"`
	Subject   string    `json:"subject" firestore:"subject" bson:"subject"`
	Gender    Gender    `json:"gender" firestore:"gender" bson:"gender"`
	Status    string    `json:"status" firestore:"status" bson:"status"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

func (s *Student) normalize() error {
	s.Name = strings.TrimSpace(s.Name)
	s.IDUnik = strings.TrimSpace(s.IDUnik)
	s.NISN = strings.TrimSpace(s.NISN)
	s.Class = strings.TrimSpace(s.Class)
	if s.Name == "" || s.IDUnik == "" {
		return errors.Join(ErrInvalid, errors.New("name and idUnik are required"))
	}
	g, err := ParseGender(string(s.Gender))
	if err != nil {
		return errors.Join(ErrInvalid, err)
	}
	s.Gender = g
	if s.Status == "" {
		s.Status = StatusActive
	}
	if !s.Status.valid() {
		return errors.Join(ErrInvalid, errors.New("unknown status "+string(s.Status)))
	}
	return nil
}

func (t *Teacher) normalize() error {
	t.Name = strings.TrimSpace(t.Name)
	t.NIP = strings.TrimSpace(t.NIP)
	if t.Name == "" {
		return errors.Join(ErrInvalid, errors.New("name is required"))
	}
	if t.Gender != "" {
		g, err := ParseGender(string(t.Gender))
		if err != nil {
			return errors.Join(ErrInvalid, err)
		}
		t.Gender = g
	}
	if t.Status == "" {
		t.Status = string(StatusActive)
	}
	return nil
}
