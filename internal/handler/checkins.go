package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wellcheck/internal/attendance"
)

func (h *Handler) today(c *gin.Context) {
	recs, err := h.attendance.Today(c.Request.Context(), claims(c).UserID, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) eligibility(c *gin.Context) {
	e, err := h.attendance.Eligibility(c.Request.Context(), claims(c).UserID, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) warning(c *gin.Context) {
	cl := claims(c)
	if cl.IsManager() {
		c.JSON(http.StatusOK, gin.H{"warning": attendance.WarningNone, "message": ""})
		return
	}
	w, err := h.attendance.Warning(c.Request.Context(), cl.UserID, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warning": w, "message": w.Message()})
}

func (h *Handler) submit(c *gin.Context) {
	var sub attendance.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.attendance.Submit(c.Request.Context(), claims(c).UserID, sub, h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// listCheckins returns records. Managers may filter by userId; members only see their own.
func (h *Handler) listCheckins(c *gin.Context) {
	f, err := h.filterFromQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	recs, err := h.attendance.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (h *Handler) filterFromQuery(c *gin.Context) (attendance.Filter, error) {
	cl := claims(c)
	f := attendance.Filter{UserID: cl.UserID}
	if cl.IsManager() {
		f.UserID = c.Query("userId")
	}

	loc := h.attendance.Policy().Location
	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return f, fmt.Errorf("from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			return f, fmt.Errorf("to must be YYYY-MM-DD")
		}
		f.To = t.AddDate(0, 0, 1)
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	return f, nil
}
