// Package httpapi exposes students, attendance marks, check-ins and the two
// reconciled attendance views over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendboard/internal/attendance"
	"attendboard/internal/auth"
	"attendboard/internal/dashboard"
	"attendboard/internal/metrics"
	"attendboard/internal/queue"
	"attendboard/internal/reconcile"
	"attendboard/internal/source"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler holds the dependencies of every route.
type Handler struct {
	Service  *attendance.Service
	Fetcher  source.Fetcher
	Pipeline *reconcile.Pipeline
	Poller   *dashboard.Poller
	Queue    queue.Queue
	Signer   *auth.Signer
	AdminKey string
	Health   map[string]HealthCheck
}

func (h *Handler) healthz(c *gin.Context) {
	out := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		out[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			out["status"] = "degraded"
		}
	}
	c.JSON(status, out)
}

// ---------- Tokens ----------

func (h *Handler) adminToken(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.AdminKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login disabled"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.AdminKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	h.issue(c, "admin", auth.RoleAdmin)
}

func (h *Handler) registerDevice(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.issue(c, req.DeviceID, auth.RoleDevice)
}

func (h *Handler) issue(c *gin.Context, subject, role string) {
	tokens, err := h.Signer.Issue(subject, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Students ----------

func (h *Handler) createStudent(c *gin.Context) {
	var in attendance.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Service.CreateStudent(c.Request.Context(), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) listStudents(c *gin.Context) {
	limit, offset := paging(c)
	students, err := h.Service.ListStudents(c.Request.Context(), limit, offset)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if students == nil {
		students = []attendance.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) getStudent(c *gin.Context) {
	st, err := h.Service.GetStudent(c.Request.Context(), c.Param("index"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var in attendance.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Service.UpdateStudent(c.Request.Context(), c.Param("index"), in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.Service.DeleteStudent(c.Request.Context(), c.Param("index")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) markAttendance(c *gin.Context) {
	var m attendance.Mark
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	evt, err := h.Service.MarkAttendance(c.Request.Context(), c.Param("index"), m)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

// ---------- Check-ins ----------

func (h *Handler) checkIn(c *gin.Context) {
	var req struct {
		IndexNumber string    `json:"indexNumber" binding:"required"`
		Status      string    `json:"status" binding:"required,oneof=entered left late"`
		At          time.Time `json:"at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, _ := auth.FromContext(c)
	at := req.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	msg, err := queue.NewMessage(queue.TypeCheckIn, attendance.CheckIn{
		IndexNumber: req.IndexNumber,
		Status:      req.Status,
		DeviceID:    claims.Subject,
		At:          at,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode check-in"})
		return
	}
	if err := h.Queue.Publish(c.Request.Context(), msg); err != nil {
		log.Printf("queue publish failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "check-in queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"indexNumber": req.IndexNumber, "status": req.Status, "at": at})
}

// ---------- Views ----------

type viewResponse struct {
	View        string                             `json:"view"`
	Date        string                             `json:"date"`
	GeneratedAt time.Time                          `json:"generatedAt"`
	Query       string                             `json:"query"`
	Status      string                             `json:"status"`
	Stats       reconcile.AggregateStats           `json:"stats"`
	Students    []reconcile.StudentAttendanceState `json:"students"`
}

func respondView(c *gin.Context, res reconcile.Result) {
	query := c.Query("q")
	filter, err := reconcile.ParseStatusFilter(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, viewResponse{
		View:        res.View,
		Date:        res.Date,
		GeneratedAt: res.GeneratedAt,
		Query:       query,
		Status:      filter.String(),
		Stats:       res.Stats,
		Students:    res.Filter(query, filter),
	})
}

func (h *Handler) attendanceByDate(c *gin.Context) {
	date := h.Pipeline.Today()
	if raw := c.Query("date"); raw != "" {
		d, err := reconcile.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date = d
	}
	if _, err := reconcile.ParseStatusFilter(c.Query("status")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, offset := paging(c)

	snap, err := h.Fetcher.Fetch(c.Request.Context(), source.FetchOptions{Date: date, Limit: limit, Offset: offset})
	if err != nil {
		metrics.FetchErrors.WithLabelValues(source.Kind(err)).Inc()
		writeFetchError(c, err)
		return
	}
	respondView(c, h.Pipeline.Run(snap, reconcile.ByDateView(date)))
}

func (h *Handler) dashboardView(c *gin.Context) {
	res, ok, err := h.Poller.Current()
	if !ok {
		if err != nil {
			writeFetchError(c, err)
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard not ready"})
		return
	}
	respondView(c, res)
}

func (h *Handler) refreshDashboard(c *gin.Context) {
	res, err := h.Poller.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, dashboard.ErrSuperseded):
		h.dashboardView(c)
	case err != nil:
		writeFetchError(c, err)
	default:
		respondView(c, res)
	}
}

// ---------- helpers ----------

func paging(c *gin.Context) (limit, offset int) {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		offset = v
	}
	return limit, offset
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
	case errors.Is(err, attendance.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func writeFetchError(c *gin.Context, err error) {
	kind := source.Kind(err)
	log.Printf("fetch failed (%s): %v", kind, err)
	status := http.StatusBadGateway
	if kind == "internal" {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": "could not load attendance", "kind": kind})
}
