package service

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"yourloops-dashboard/internal/domain"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Patients"

// PatientExportHeader is the column order of the XLSX export.
var PatientExportHeader = []string{
	"Patient",
	"Email",
	"Birthdate",
	"System",
	"TIR",
	"TBR",
	"Last upload",
	"Remote monitoring",
	"Flagged",
}

var exportColumnWidths = []float64{30, 32, 14, 12, 8, 8, 26, 20, 10}

// ExportPatients renders the filtered and sorted patient list of teamID as an XLSX workbook.
func (s *PatientService) ExportPatients(ctx context.Context, user domain.User, teamID string, req ListPatientsRequest) ([]byte, error) {
	req.TeamID = teamID
	req.Page = 1
	req.Size = math.MaxInt32
	list, err := s.ListPatients(ctx, user, req)
	if err != nil {
		return nil, err
	}
	return patientsWorkbook(list.Items)
}

func patientsWorkbook(rows []PatientRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PatientExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, name, name, exportColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := exportRow(row)
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(row PatientRow) []any {
	birthdate := ""
	if row.Profile.Birthdate != nil {
		birthdate = row.Profile.Birthdate.Format("02/01/2006")
	}
	monitoring := ""
	if row.Monitoring != nil && row.Monitoring.Enabled {
		monitoring = "Yes"
		if row.Monitoring.MonitoringEnd != nil {
			monitoring = row.Monitoring.MonitoringEnd.Format("2006-01-02")
		}
	}
	flagged := "No"
	if row.IsFlagged() {
		flagged = "Yes"
	}
	return []any{
		row.Profile.FullName,
		row.Profile.Email,
		birthdate,
		row.Settings.System,
		row.MedicalValues.TIR,
		row.MedicalValues.TBR,
		row.MedicalValues.LastUpload,
		monitoring,
		flagged,
	}
}
