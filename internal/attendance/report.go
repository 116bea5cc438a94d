package attendance

import (
	"context"

	"presensi/internal/roster"
)

// ClassRoster lists the students of one class.
type ClassRoster interface {
	GetStudentsByClass(ctx context.Context, class string) ([]roster.Student, error)
}

// DailyReport summarizes one day, optionally for one class.
type DailyReport struct {
	Date    string         `json:"date"`
	Class   string         `json:"class,omitempty"`
	Records []Record       `json:"records"`
	Counts  map[Status]int `json:"counts"`
	// Missing lists class members with no record for the day; they count as Alpha.
	Missing   []roster.Student `json:"missing,omitempty"`
	HaidMarks int              `json:"haidMarks"`
}

// Reporter builds daily reports from the record store and the roster.
type Reporter struct {
	store   Store
	classes ClassRoster
}

// NewReporter creates a reporter.
func NewReporter(store Store, classes ClassRoster) *Reporter {
	return &Reporter{store: store, classes: classes}
}

// Daily lists the records of date and counts them per status. With a class,
// roster members without a record are added to the Alpha count.
func (r *Reporter) Daily(ctx context.Context, date, class string) (DailyReport, error) {
	recs, err := r.store.ListByDate(ctx, date, class)
	if err != nil {
		return DailyReport{}, err
	}
	rep := DailyReport{Date: date, Class: class, Records: recs, Counts: make(map[Status]int, len(Statuses))}
	for _, s := range Statuses {
		rep.Counts[s] = 0
	}
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		seen[rec.StudentID] = true
		status := rec.Status
		if status == "" {
			status = StatusAlpha
		}
		rep.Counts[status]++
		for _, slot := range Slots {
			if IsHaidValue(rec.Value(slot)) {
				rep.HaidMarks++
			}
		}
	}

	if class == "" || r.classes == nil {
		return rep, nil
	}
	students, err := r.classes.GetStudentsByClass(ctx, class)
	if err != nil {
		return DailyReport{}, err
	}
	for _, st := range students {
		if !seen[st.ID] {
			rep.Missing = append(rep.Missing, st)
			rep.Counts[StatusAlpha]++
		}
	}
	return rep, nil
}
