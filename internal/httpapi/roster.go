package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presensi/internal/qrcard"
	"presensi/internal/roster"
)

func (h *Handler) rosterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, roster.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "idUnik or NISN already registered"})
	default:
		h.logFor(c).Error("roster request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "roster unavailable"})
	}
}

func forceRefresh(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.Query("refresh"))
	return force
}

// listStudents serves the cached roster. With no snapshot and the store
// down the body still carries an empty list.
func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.Roster.GetStudents(c.Request.Context(), forceRefresh(c))
	if err != nil {
		h.logFor(c).Error("student roster unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"students": students, "error": "roster unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) listTeachers(c *gin.Context) {
	teachers, err := h.Roster.GetTeachers(c.Request.Context(), forceRefresh(c))
	if err != nil {
		h.logFor(c).Error("teacher roster unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"teachers": teachers, "error": "roster unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

func (h *Handler) listClass(c *gin.Context) {
	students, err := h.Roster.GetStudentsByClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"class": c.Param("class"), "students": students})
}

func (h *Handler) studentQR(c *gin.Context) {
	st, err := h.Roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.rosterError(c, err)
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	png, err := qrcard.PNG(st, size)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) createStudent(c *gin.Context) {
	var st roster.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Roster.CreateStudent(c.Request.Context(), st)
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var st roster.Student
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st.ID = c.Param("id")
	out, err := h.Roster.UpdateStudent(c.Request.Context(), st)
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	if err := h.Roster.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.rosterError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) createTeacher(c *gin.Context) {
	var t roster.Teacher
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.Roster.CreateTeacher(c.Request.Context(), t)
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) updateTeacher(c *gin.Context) {
	var t roster.Teacher
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.ID = c.Param("id")
	out, err := h.Roster.UpdateTeacher(c.Request.Context(), t)
	if err != nil {
		h.rosterError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) deleteTeacher(c *gin.Context) {
	if err := h.Roster.DeleteTeacher(c.Request.Context(), c.Param("id")); err != nil {
		h.rosterError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
