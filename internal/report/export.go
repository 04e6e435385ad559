package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/timeutil"
)

// ExportFileLayout names export files by their display-zone time.
const ExportFileLayout = "production_tickets_02-01-2006_15-04.xlsx"

const historyLayout = "02.01.2006 15:04"

// columnWidths follow the export column order.
var columnWidths = []float64{15, 20, 20, 15, 15, 20, 15, 20, 20, 15, 10, 50, 10, 50, 15, 20}

// Row is one flattened ticket.
type Row struct {
	TicketID          string `json:"ticket_id"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at"`
	Product           string `json:"product"`
	Brand             string `json:"brand"`
	Technology        string `json:"technology"`
	Mixer             string `json:"mixer"`
	Status            string `json:"status"`
	Step              string `json:"current_step"`
	Username          string `json:"username"`
	CorrectionCount   int    `json:"correction_count"`
	CorrectionHistory string `json:"correction_history"`
	AnalysisCount     int    `json:"analysis_count"`
	AnalysisHistory   string `json:"analysis_history"`
	// ProductionMinutes is empty until the ticket is archived.
	ProductionMinutes string `json:"production_minutes"`
	ProductionTime    string `json:"production_time"`
}

func (r Row) cells() []interface{} {
	return []interface{}{
		r.TicketID, r.CreatedAt, r.CompletedAt, r.Product, r.Brand, r.Technology,
		r.Mixer, r.Status, r.Step, r.Username, r.CorrectionCount,
		r.CorrectionHistory, r.AnalysisCount, r.AnalysisHistory,
		r.ProductionMinutes, r.ProductionTime,
	}
}

// ExportRows flattens tickets in order, rendering times in zone (UTC when nil).
func ExportRows(tickets []domain.Ticket, labels Labels, zone *time.Location) []Row {
	if zone == nil {
		zone = time.UTC
	}
	rows := make([]Row, 0, len(tickets))
	for _, t := range tickets {
		r := Row{
			TicketID:          t.TicketID,
			CreatedAt:         timeutil.FormatDisplay(t.CreatedAt, zone),
			Product:           string(t.Product),
			Brand:             string(t.Brand),
			Technology:        string(t.Technology),
			Mixer:             t.Mixer,
			Status:            labels.Status(string(t.Status)),
			Step:              labels.Step(t.CurrentStep),
			Username:          t.Username,
			CorrectionCount:   len(t.CorrectionsHistory),
			CorrectionHistory: correctionText(t.CorrectionsHistory, zone),
			AnalysisCount:     len(t.AnalysesHistory),
			AnalysisHistory:   analysisText(t.AnalysesHistory, labels, zone),
		}
		if t.CompletedAt != nil {
			r.CompletedAt = timeutil.FormatDisplay(*t.CompletedAt, zone)
		}
		if m := t.TotalProductionTimeMinutes; m != nil && *m > 0 {
			r.ProductionMinutes = strconv.Itoa(*m)
			r.ProductionTime = timeutil.FormatMinutes(*m)
		}
		rows = append(rows, r)
	}
	return rows
}

func correctionText(list []domain.CorrectionRecord, zone *time.Location) string {
	var b strings.Builder
	for i, c := range list {
		fmt.Fprintf(&b, "%d. %s - %s: %s\n", i+1, c.Timestamp.In(zone).Format(historyLayout), c.User, c.Note)
	}
	return b.String()
}

func analysisText(list []domain.AnalysisRecord, labels Labels, zone *time.Location) string {
	var b strings.Builder
	for i, a := range list {
		result := labels.Rejected
		if a.Result == domain.AnalysisResultApproved {
			result = labels.Approved
		}
		fmt.Fprintf(&b, "%d. %s - %s: %s - %s\n", i+1, a.Timestamp.In(zone).Format(historyLayout), a.User, result, a.Details)
	}
	return b.String()
}

// WriteXLSX renders rows as a single-sheet workbook with localized headers.
func WriteXLSX(w io.Writer, rows []Row, labels Labels) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := labels.Sheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(labels.Columns))
	for i, c := range labels.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := r.cells()
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set width %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportFilename names an export produced at now.
func ExportFilename(now time.Time, zone *time.Location) string {
	return now.In(zone).Format(ExportFileLayout)
}
