package excel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/onegreenvn/green-session-service/internal/models"
)

const sessionsSheet = "Sessions"

var sessionHeaders = []string{
	"Session ID", "Device", "Browser", "OS", "Mobile", "IP Address", "Location",
	"Created At", "Last Used At", "Expires At", "Current",
}

// Service renders session listings as spreadsheets
type Service struct{}

// NewExcelService creates a new Excel service instance
func NewExcelService() *Service {
	return &Service{}
}

// ExportSessions writes sessions into an in-memory .xlsx workbook
func (s *Service) ExportSessions(sessions []models.SessionView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sessionsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"D9D9D9"}, // Gray
			Pattern: 1,
		},
	})
	currentStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"C6EFCE"}, // Light green
			Pattern: 1,
		},
	})

	for i, h := range sessionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sessionsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(sessionHeaders))
	f.SetCellStyle(sessionsSheet, "A1", lastCol+"1", headerStyle)

	for i, v := range sessions {
		row := i + 2
		values := []interface{}{
			v.ID, v.Device, v.Browser, v.OS, yesNo(v.IsMobile), v.IPAddress, v.Location,
			v.CreatedAt.UTC().Format(time.RFC3339),
			v.LastUsedAt.UTC().Format(time.RFC3339),
			v.ExpiresAt.UTC().Format(time.RFC3339),
			yesNo(v.IsCurrent),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sessionsSheet, start, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if v.IsCurrent {
			end, _ := excelize.CoordinatesToCellName(len(sessionHeaders), row)
			f.SetCellStyle(sessionsSheet, start, end, currentStyle)
		}
	}

	f.SetColWidth(sessionsSheet, "A", "A", 30)
	f.SetColWidth(sessionsSheet, "B", lastCol, 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// Filename builds a download name for owner's export
func Filename(owner string, at time.Time) string {
	return fmt.Sprintf("sessions_%s_%d.xlsx", owner, at.Unix())
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
