package attendance

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Status is the derived attendance status for a day.
type Status string

const (
	StatusHadir     Status = "Hadir"
	StatusTerlambat Status = "Terlambat"
	StatusSakit     Status = "Sakit"
	StatusIzin      Status = "Izin"
	StatusAlpha     Status = "Alpha"
	StatusHaid      Status = "Haid"
)

// Statuses lists the status vocabulary in report order.
var Statuses = []Status{StatusHadir, StatusTerlambat, StatusSakit, StatusIzin, StatusAlpha, StatusHaid}

// DateLayout is the day partition format used in record keys.
const DateLayout = "2006-01-02"

const (
	timeLayout = "15:04:05"
	haidLayout = "15:04"
	haidSuffix = " H"
)

var (
	// ErrRecordNotFound is returned by Store.Get for a day with no record.
	ErrRecordNotFound = errors.New("attendance: record not found")
	// ErrAlreadyRecorded aborts Store.Apply when the target slot is filled.
	ErrAlreadyRecorded = errors.New("attendance: slot already recorded")
	// ErrContention is returned when a conditional write lost too many races.
	ErrContention = errors.New("attendance: too much write contention")
)

// RecordKey builds the composite document key for a student's day.
func RecordKey(studentID, date string) string {
	return studentID + "_" + date
}

// Record is the one-per-student-per-day attendance document.
type Record struct {
	ID          string    `json:"id" firestore:"-" bson:"_id"`
	StudentID   string    `json:"studentId" firestore:"studentId" bson:"studentId"`
	Date        string    `json:"date" firestore:"date" bson:"date"`
	StudentName string    `json:"studentName" firestore:"studentName" bson:"studentName"`
	Class       string    `json:"class" firestore:"class" bson:"class"`
	IDUnik      string    `json:"idUnik" firestore:"idUnik" bson:"idUnik"`
	CheckIn     string    `json:"checkIn" firestore:"checkIn" bson:"checkIn"`
	Duha        string    `json:"duha" firestore:"duha" bson:"duha"`
	Zuhur       string    `json:"zuhur" firestore:"zuhur" bson:"zuhur"`
	Ashar       string    `json:"ashar" firestore:"ashar" bson:"ashar"`
	CheckOut    string    `json:"checkOut" firestore:"checkOut" bson:"checkOut"`
	Status      Status    `json:"status" firestore:"status" bson:"status"`
	Version     int64     `json:"-" firestore:"version" bson:"version"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// Value returns the content of slot s.
func (r Record) Value(s Slot) string {
	switch s {
	case SlotCheckIn:
		return r.CheckIn
	case SlotDuha:
		return r.Duha
	case SlotZuhur:
		return r.Zuhur
	case SlotAshar:
		return r.Ashar
	case SlotCheckOut:
		return r.CheckOut
	}
	return ""
}

func (r *Record) set(s Slot, v string) {
	switch s {
	case SlotCheckIn:
		r.CheckIn = v
	case SlotDuha:
		r.Duha = v
	case SlotZuhur:
		r.Zuhur = v
	case SlotAshar:
		r.Ashar = v
	case SlotCheckOut:
		r.CheckOut = v
	}
}

// IsEmptyValue reports whether a slot value counts as unfilled. Imported
// sheets use "-" as a placeholder.
func IsEmptyValue(v string) bool {
	return v == "" || v == "-"
}

// IsHaidValue reports whether v carries the menstrual-leave marker.
func IsHaidValue(v string) bool {
	return len(v) > len(haidSuffix) && v[len(v)-len(haidSuffix):] == haidSuffix
}

// Patch is the set of fields one scan writes. Everything else on an existing
// record is left as it is.
type Patch struct {
	StudentID   string
	Date        string
	StudentName string
	Class       string
	IDUnik      string
	Slot        Slot
	Value       string
	Status      Status
}

// Apply merges p into r. Identity fields are only taken on creation; the day
// partition of an existing record never changes.
func (r *Record) Apply(key string, p Patch, exists bool) {
	if !exists {
		r.ID = key
		r.StudentID = p.StudentID
		r.Date = p.Date
	}
	r.StudentName = p.StudentName
	r.Class = p.Class
	r.IDUnik = p.IDUnik
	r.set(p.Slot, p.Value)
	r.Status = p.Status
}

// MutateFunc decides the patch for the current record. exists is false when
// no record has been written for the day yet. Returning an error aborts the
// write.
type MutateFunc func(cur Record, exists bool) (Patch, error)

// Store persists attendance records.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	// Apply runs fn against the current record and writes its patch as one
	// atomic conditional write. Exactly one write happens when fn succeeds,
	// none when it fails.
	Apply(ctx context.Context, key string, fn MutateFunc) (Record, error)
	// ListByDate returns the records of one day, optionally for one class.
	ListByDate(ctx context.Context, date, class string) ([]Record, error)
}

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StudentName != recs[j].StudentName {
			return recs[i].StudentName < recs[j].StudentName
		}
		return recs[i].ID < recs[j].ID
	})
}
