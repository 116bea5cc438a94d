package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presensi/internal/attendance"
	"presensi/internal/auth"
	"presensi/internal/queue"
)

// codeDebounced is returned when a station repeats a scan inside the debounce
// window. It never reaches the engine.
const (
	codeDebounced attendance.Code = "debounced"
	msgDebounced                  = "TUNGGU SEBENTAR"
)

type scanRequest struct {
	Code      string    `json:"code"`
	Session   string    `json:"session"`
	Haid      bool      `json:"haid"`
	ScannedAt time.Time `json:"scannedAt"`
}

func (r scanRequest) toScan(station string) attendance.Scan {
	session := attendance.Session(strings.TrimSpace(r.Session))
	if parsed, err := attendance.ParseSession(r.Session); err == nil {
		session = parsed
	}
	return attendance.Scan{Code: r.Code, Session: session, Haid: r.Haid, Station: station}
}

func statusFor(code attendance.Code) int {
	switch code {
	case attendance.CodeOK:
		return http.StatusCreated
	case attendance.CodeUnreadable, attendance.CodeInvalidSession:
		return http.StatusBadRequest
	case attendance.CodeNotRegistered:
		return http.StatusNotFound
	case attendance.CodeHaidSession, attendance.CodeHaidGender:
		return http.StatusUnprocessableEntity
	case attendance.CodeAlreadyRecorded:
		return http.StatusConflict
	case codeDebounced:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func station(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.Subject
}

func (h *Handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, attendance.Result{Code: attendance.CodeUnreadable, Message: attendance.MsgUnreadable})
		return
	}
	st := station(c)
	scan := req.toScan(st)
	if !h.Debouncer.Allow(attendance.DebounceKey(st, scan)) {
		c.JSON(statusFor(codeDebounced), attendance.Result{Code: codeDebounced, Message: msgDebounced})
		return
	}
	res := h.Engine.Record(c.Request.Context(), scan)
	c.JSON(statusFor(res.Code), res)
}

// scanBatch queues scans a station collected while offline. Each keeps its
// original scan time; the worker records them later.
func (h *Handler) scanBatch(c *gin.Context) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch upload disabled"})
		return
	}
	var req struct {
		Scans []scanRequest `json:"scans" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Scans) == 0 || len(req.Scans) > h.opts.MaxBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must hold between 1 and the configured maximum of scans", "max": h.opts.MaxBatch})
		return
	}
	for i, s := range req.Scans {
		if s.ScannedAt.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scannedAt is required", "index": i})
			return
		}
	}

	st := station(c)
	queued := 0
	for _, s := range req.Scans {
		msg, err := queue.NewScanMessage(s.toScan(st), s.ScannedAt)
		if err == nil {
			err = h.Queue.Publish(c.Request.Context(), msg)
		}
		if err != nil {
			h.logFor(c).Error("queue publish failed", zap.String("station", st), zap.Int("queued", queued), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable", "queued": queued})
			return
		}
		queued++
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": queued})
}

func (h *Handler) suggestSession(c *gin.Context) {
	at := h.Engine.Now()
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at must be RFC3339"})
			return
		}
		at = parsed.In(h.Engine.Location())
	}
	c.JSON(http.StatusOK, gin.H{"session": attendance.SuggestSessionAt(at), "at": at.Format(time.RFC3339)})
}

func (h *Handler) dateParam(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		return h.Engine.Now().Format(attendance.DateLayout), true
	}
	if _, err := time.Parse(attendance.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return "", false
	}
	return date, true
}

func (h *Handler) listAttendance(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	recs, err := h.Store.ListByDate(c.Request.Context(), date, c.Query("class"))
	if err != nil {
		h.logFor(c).Error("list attendance failed", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": attendance.MsgStoreUnavailable})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": recs})
}

func (h *Handler) dailyReport(c *gin.Context) {
	date, ok := h.dateParam(c)
	if !ok {
		return
	}
	rep, err := h.Reporter.Daily(c.Request.Context(), date, c.Query("class"))
	if err != nil {
		h.logFor(c).Error("daily report failed", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": attendance.MsgStoreUnavailable})
		return
	}
	c.JSON(http.StatusOK, rep)
}
