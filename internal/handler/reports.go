package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wellcheck/internal/attendance"
	"wellcheck/internal/report"
	"wellcheck/internal/user"
)

const reportLimit = 100000

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// reportData loads the records and users a report over the query's period needs.
// Members only get their own data.
func (h *Handler) reportData(c *gin.Context) (report.Period, []attendance.Record, []user.User, error) {
	p, err := report.ParsePeriod(c.Query("period"), c.Query("year"), c.Query("month"))
	if err != nil {
		return report.Period{}, nil, nil, err
	}
	cl := claims(c)
	loc := h.attendance.Policy().Location
	from, to := p.Bounds(loc)
	f := attendance.Filter{From: from, To: to, Limit: reportLimit, OmitSelfie: true}

	var ids []string
	if !cl.IsManager() {
		f.UserID = cl.UserID
		ids = []string{cl.UserID}
	}
	records, err := h.attendance.List(c.Request.Context(), f)
	if err != nil {
		return report.Period{}, nil, nil, err
	}
	users, err := h.users.List(c.Request.Context(), ids...)
	if err != nil {
		return report.Period{}, nil, nil, err
	}
	return p, records, users, nil
}

func (h *Handler) reportSummary(c *gin.Context) {
	p, records, users, err := h.reportData(c)
	if err != nil {
		writeError(c, err)
		return
	}
	loc := h.attendance.Policy().Location
	c.JSON(http.StatusOK, gin.H{
		"period":    p,
		"label":     p.Label(),
		"summaries": report.Summarize(records, users, p, loc),
	})
}

func (h *Handler) reportExport(c *gin.Context) {
	p, records, users, err := h.reportData(c)
	if err != nil {
		writeError(c, err)
		return
	}
	loc := h.attendance.Policy().Location
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, p, report.Summarize(records, users, p, loc), records, users, loc); err != nil {
		writeError(c, err)
		return
	}
	name := p.Label()
	if p.Kind == report.PeriodAll {
		name = report.PeriodAll
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
