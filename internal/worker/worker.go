// Package worker replays queued offline scans through the attendance engine.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"presensi/internal/attendance"
	"presensi/internal/metrics"
	"presensi/internal/queue"
)

// Recorder records a scan at the time it was taken.
type Recorder interface {
	RecordAt(ctx context.Context, scan attendance.Scan, at time.Time) attendance.Result
}

// Worker consumes scan messages. Failed scans are logged, not retried.
type Worker struct {
	queue    queue.Queue
	recorder Recorder
	log      *zap.Logger
}

// New creates a worker.
func New(q queue.Queue, r Recorder, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{queue: q, recorder: r, log: log}
}

// Run processes messages until ctx is done or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.queue.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle processes one message and reports the scan result, if any.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) (attendance.Result, bool) {
	if msg.Type != queue.TypeScan {
		metrics.QueueMessages.WithLabelValues(msg.Type, "ignored").Inc()
		w.log.Warn("unknown message type", zap.String("type", msg.Type))
		return attendance.Result{}, false
	}
	sm, err := queue.DecodeScan(msg)
	if err != nil {
		metrics.QueueMessages.WithLabelValues(msg.Type, "malformed").Inc()
		w.log.Error("bad scan message", zap.Error(err))
		return attendance.Result{}, false
	}

	res := w.recorder.RecordAt(ctx, sm.Scan, sm.ScannedAt)
	fields := []zap.Field{
		zap.String("code", attendance.SanitizeCode(sm.Scan.Code)),
		zap.String("session", string(sm.Scan.Session)),
		zap.String("station", sm.Scan.Station),
		zap.Time("scanned_at", sm.ScannedAt),
		zap.String("result", string(res.Code)),
	}
	switch res.Code {
	case attendance.CodeOK:
		metrics.QueueMessages.WithLabelValues(msg.Type, "recorded").Inc()
		w.log.Info("queued scan recorded", append(fields, zap.String("value", res.Timestamp))...)
	case attendance.CodeStoreUnavailable:
		metrics.QueueMessages.WithLabelValues(msg.Type, "failed").Inc()
		w.log.Error("queued scan failed", fields...)
	default:
		metrics.QueueMessages.WithLabelValues(msg.Type, "rejected").Inc()
		w.log.Info("queued scan rejected", append(fields, zap.String("message", res.Message))...)
	}
	return res, true
}
