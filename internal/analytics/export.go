package analytics

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Clicks"

var exportHeader = []string{
	"id", "timestamp", "country", "city", "device_type", "browser", "os", "referrer", "ip", "user_agent",
}

// ExportXLSX writes events as a single-sheet workbook, one row per click.
func ExportXLSX(w io.Writer, events []*ClickEvent) error {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := xl.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range events {
		row := []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Country,
			e.City,
			string(e.DeviceType),
			e.Browser,
			e.OS,
			e.Referrer,
			e.IPAddress,
			e.UserAgent,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := xl.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := xl.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}
