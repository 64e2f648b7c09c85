package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/office-orders/internal/domain/entity"
)

// SheetName is the worksheet holding the task listing
const SheetName = "Tasks"

var columns = []struct {
	title string
	width float64
	value func(t *entity.Task, badge string) interface{}
}{
	{"Cover Page No", 16, func(t *entity.Task, _ string) interface{} { return t.CoverPageNo }},
	{"Employee ID", 12, func(t *entity.Task, _ string) interface{} { return t.EmployeeID }},
	{"Employee", 22, func(t *entity.Task, _ string) interface{} { return t.Employee.Name }},
	{"Department", 18, func(t *entity.Task, _ string) interface{} { return t.Employee.Department }},
	{"Subject", 32, func(t *entity.Task, _ string) interface{} { return t.OfficeOrder.Subject }},
	{"Visit From", 12, func(t *entity.Task, _ string) interface{} { return date(t.Visit.From.IsZero(), t.Visit.From.Format(entity.DateLayout)) }},
	{"Visit To", 12, func(t *entity.Task, _ string) interface{} { return date(t.Visit.To.IsZero(), t.Visit.To.Format(entity.DateLayout)) }},
	{"Days", 6, func(t *entity.Task, _ string) interface{} { return t.Duration() }},
	{"City", 14, func(t *entity.Task, _ string) interface{} { return t.Visit.City }},
	{"Country", 14, func(t *entity.Task, _ string) interface{} { return t.Visit.Country }},
	{"Nature of Visit", 20, func(t *entity.Task, _ string) interface{} { return t.Visit.NatureOfVisit }},
	{"To Section", 28, func(t *entity.Task, _ string) interface{} { return strings.Join(t.OfficeOrder.ToSection, "; ") }},
	{"Status", 14, func(_ *entity.Task, badge string) interface{} { return badge }},
	{"Updated On", 20, func(t *entity.Task, _ string) interface{} {
		return date(t.UpdatedOn.IsZero(), t.UpdatedOn.UTC().Format("2006-01-02 15:04"))
	}},
}

// SheetWriter implements port.TaskSheetWriter with excelize
type SheetWriter struct {
	logger *zap.Logger
}

// NewSheetWriter creates a new sheet writer
func NewSheetWriter(logger *zap.Logger) *SheetWriter {
	return &SheetWriter{logger: logger}
}

// WriteTasks writes one header row and one row per task as XLSX
func (s *SheetWriter) WriteTasks(w io.Writer, tasks []*entity.Task, badge func(*entity.Task) string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.title
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, col.width); err != nil {
			s.logger.Warn("Failed to set column width", zap.String("column", name), zap.Error(err))
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(SheetName, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, task := range tasks {
		label := ""
		if badge != nil {
			label = badge(task)
		}
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			row[i] = col.value(task, label)
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		s.logger.Warn("Failed to freeze header row", zap.Error(err))
	}

	if len(tasks) > 0 {
		if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", last, len(tasks)+1), nil); err != nil {
			s.logger.Warn("Failed to add auto filter", zap.Error(err))
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Task sheet written", zap.Int("rows", len(tasks)))
	return nil
}

func date(zero bool, formatted string) string {
	if zero {
		return ""
	}
	return formatted
}
