package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"presensi/internal/metrics"
	"presensi/internal/roster"
)

// Code classifies the outcome of a scan.
type Code string

const (
	CodeOK               Code = "ok"
	CodeInvalidSession   Code = "invalid_session"
	CodeUnreadable       Code = "unreadable"
	CodeNotRegistered    Code = "not_registered"
	CodeHaidSession      Code = "haid_session"
	CodeHaidGender       Code = "haid_gender"
	CodeAlreadyRecorded  Code = "already_recorded"
	CodeStoreUnavailable Code = "store_unavailable"
)

// Operator-facing messages.
const (
	MsgInvalidSession   = "SESI TIDAK DIKENAL"
	MsgUnreadable       = "KODE TIDAK TERBACA"
	MsgHaidSession      = "MODE HAID HANYA SAAT DUHA/ZUHUR/ASHAR"
	MsgHaidGender       = "MODE HAID HANYA UNTUK PUTRI"
	MsgAlreadyRecorded  = "SUDAH TERREKAM"
	MsgStoreUnavailable = "DATABASE TIDAK TERJANGKAU, COBA LAGI"
)

// Scan is one scan as submitted by a station.
type Scan struct {
	Code    string  `json:"code"`
	Session Session `json:"session"`
	Haid    bool    `json:"haid"`
	Station string  `json:"station,omitempty"`
}

// Result is the typed outcome of a scan. Expected business failures are
// reported here, never as errors.
type Result struct {
	Success bool            `json:"success"`
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Student *roster.Student `json:"student,omitempty"`
	// Timestamp is the value written, or the value already present when the
	// slot was filled before.
	Timestamp string `json:"timestamp,omitempty"`
	Status    Status `json:"statusRecorded,omitempty"`
	Slot      Slot   `json:"slot,omitempty"`
	// ClearHaidMode tells the station to switch its haid toggle off.
	ClearHaidMode bool `json:"clearHaidMode,omitempty"`
}

const defaultLateThreshold = "07:30:00"

// EngineOptions tunes the engine.
type EngineOptions struct {
	Location      *time.Location
	LateThreshold string
	Now           func() time.Time
}

// Engine records scans into day records.
type Engine struct {
	resolver *IdentityResolver
	store    Store
	log      *zap.Logger
	loc      *time.Location
	late     string
	now      func() time.Time
}

// NewEngine creates an engine.
func NewEngine(resolver *IdentityResolver, store Store, log *zap.Logger, opts EngineOptions) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LateThreshold == "" {
		opts.LateThreshold = defaultLateThreshold
	}
	// scan times compare as strings, so the threshold must share their layout
	if t, err := time.Parse(timeLayout, opts.LateThreshold); err != nil {
		log.Warn("invalid late threshold, using default",
			zap.String("threshold", opts.LateThreshold), zap.String("default", defaultLateThreshold), zap.Error(err))
		opts.LateThreshold = defaultLateThreshold
	} else {
		opts.LateThreshold = t.Format(timeLayout)
	}
	return &Engine{
		resolver: resolver,
		store:    store,
		log:      log,
		loc:      opts.Location,
		late:     opts.LateThreshold,
		now:      opts.Now,
	}
}

// Location is the school's wall-clock zone.
func (e *Engine) Location() *time.Location { return e.loc }

// Now is the current wall-clock time in the school's zone.
func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

// Record records a scan at the current time.
func (e *Engine) Record(ctx context.Context, scan Scan) Result {
	return e.RecordAt(ctx, scan, e.now())
}

// RecordAt records a scan taken at at. Queued scans from offline stations
// replay with their original scan time.
func (e *Engine) RecordAt(ctx context.Context, scan Scan, at time.Time) Result {
	res := e.record(ctx, scan, at.In(e.loc))
	metrics.Scans.WithLabelValues(string(res.Code)).Inc()
	return res
}

func (e *Engine) record(ctx context.Context, scan Scan, at time.Time) Result {
	slot, err := ResolveSlot(scan.Session, at)
	if err != nil {
		return fail(CodeInvalidSession, MsgInvalidSession, nil)
	}

	st, err := e.resolver.Resolve(ctx, scan.Code)
	if err != nil {
		var notRegistered *NotRegisteredError
		switch {
		case errors.Is(err, ErrUnreadable):
			return fail(CodeUnreadable, MsgUnreadable, nil)
		case errors.As(err, &notRegistered):
			return fail(CodeNotRegistered, notRegistered.Error(), nil)
		default:
			e.log.Error("student lookup failed", zap.String("code", SanitizeCode(scan.Code)), zap.Error(err))
			return fail(CodeStoreUnavailable, MsgStoreUnavailable, nil)
		}
	}

	if scan.Haid {
		switch err := ValidateHaid(scan.Session, st.Gender); {
		case errors.Is(err, ErrHaidSession):
			return fail(CodeHaidSession, MsgHaidSession, &st)
		case errors.Is(err, ErrHaidGender):
			res := fail(CodeHaidGender, MsgHaidGender, &st)
			res.ClearHaidMode = true
			return res
		}
	}

	value := at.Format(timeLayout)
	if scan.Haid {
		value = at.Format(haidLayout) + haidSuffix
	}
	date := at.Format(DateLayout)
	key := RecordKey(st.ID, date)

	var existing string
	rec, err := e.store.Apply(ctx, key, func(cur Record, _ bool) (Patch, error) {
		if v := cur.Value(slot); !IsEmptyValue(v) {
			existing = v
			return Patch{}, ErrAlreadyRecorded
		}
		return Patch{
			StudentID:   st.ID,
			Date:        date,
			StudentName: st.Name,
			Class:       st.Class,
			IDUnik:      st.IDUnik,
			Slot:        slot,
			Value:       value,
			Status:      deriveStatus(cur.Status, slot, at.Format(timeLayout), scan.Haid, e.late),
		}, nil
	})
	if errors.Is(err, ErrAlreadyRecorded) {
		res := fail(CodeAlreadyRecorded, MsgAlreadyRecorded, &st)
		res.Timestamp = existing
		res.Slot = slot
		return res
	}
	if err != nil {
		e.log.Error("attendance write failed", zap.String("key", key), zap.String("slot", string(slot)), zap.Error(err))
		return fail(CodeStoreUnavailable, MsgStoreUnavailable, &st)
	}

	e.log.Info("attendance recorded",
		zap.String("key", key),
		zap.String("slot", string(slot)),
		zap.String("value", value),
		zap.String("status", string(rec.Status)),
		zap.String("station", scan.Station))
	return Result{
		Success:   true,
		Code:      CodeOK,
		Message:   strings.ToUpper(st.Name) + " TERCATAT",
		Student:   &st,
		Timestamp: value,
		Status:    rec.Status,
		Slot:      slot,
	}
}

func fail(code Code, msg string, st *roster.Student) Result {
	return Result{Code: code, Message: msg, Student: st}
}
