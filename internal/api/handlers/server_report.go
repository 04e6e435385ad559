package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	apperrors "batchtrack.io/tracker/internal/pkg/errors"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatsResponse combines the aggregate and current shift statistics.
type StatsResponse struct {
	report.Summary
	Shift report.ShiftStats `json:"shift"`
}

// GetStats handles GET /stats.
func (s *Server) GetStats(c *gin.Context) {
	snap := s.tickets.Snapshot()
	all := make([]domain.Ticket, 0, len(snap.Active)+len(snap.Archive))
	all = append(all, snap.Active...)
	all = append(all, snap.Archive...)

	c.JSON(http.StatusOK, StatsResponse{
		Summary: report.Summarize(snap),
		Shift:   report.CurrentShiftStats(all, s.tickets.Now(), s.schedule),
	})
}

// GetDashboard handles GET /stats/dashboard.
func (s *Server) GetDashboard(c *gin.Context) {
	d := report.DashboardStats(s.tickets.Snapshot(), s.tickets.MixerStatus(), s.tickets.Now(), s.schedule, s.labels)
	c.JSON(http.StatusOK, d)
}

// ExportXLSX handles GET /export/xlsx?scope=all|active|archive.
func (s *Server) ExportXLSX(c *gin.Context) {
	snap := s.tickets.Snapshot()

	var tickets []domain.Ticket
	switch scope := c.DefaultQuery("scope", "all"); scope {
	case "all":
		tickets = append(append(tickets, snap.Active...), snap.Archive...)
	case "active":
		tickets = snap.Active
	case "archive":
		tickets = snap.Archive
	default:
		_ = c.Error(apperrors.BadRequest(apperrors.CodeValidationFailed, "scope must be all, active or archive").
			WithParams(map[string]interface{}{"scope": scope}))
		return
	}
	if len(tickets) == 0 {
		_ = c.Error(apperrors.NotFound(apperrors.CodeExportEmpty, "no tickets to export"))
		return
	}

	var buf bytes.Buffer
	rows := report.ExportRows(tickets, s.labels, s.zone())
	if err := report.WriteXLSX(&buf, rows, s.labels); err != nil {
		logger.Error("failed to render xlsx export", zap.Error(err))
		_ = c.Error(err)
		return
	}

	name := report.ExportFilename(s.tickets.Now(), s.zone())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
