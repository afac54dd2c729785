package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/cliniccare-api/internal/model"
)

const (
	cardSheet  = "Cards"
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04"
)

var cardColumns = []struct {
	header string
	width  float64
}{
	{"Patient Number", 16},
	{"Name", 28},
	{"Phone", 18},
	{"Stored Status", 15},
	{"Effective State", 24},
	{"Card Expiry", 14},
	{"Last Daily Activation", 22},
	{"Daily Activation Required", 24},
	{"Assigned Doctor", 38},
}

// buildCardWorkbook renders one row per patient on a single sheet with a frozen header row.
func buildCardWorkbook(patients []model.PatientView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(cardSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F5496"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range cardColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(cardSheet, cell, col.header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(cardSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(cardSheet, name, name, col.width); err != nil {
			return nil, err
		}
	}

	for r, p := range patients {
		values := []interface{}{
			p.PatientNumber,
			p.FullName(),
			p.Phone,
			string(p.CardStatus),
			string(p.EffectiveState),
			formatTime(p.CardExpiryDate, dateLayout),
			formatTime(p.LastDailyActivation, timeLayout),
			p.DailyActivationRequired,
			p.AssignedDoctor(),
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(cardSheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(cardSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func formatTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(layout)
}
