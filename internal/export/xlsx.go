package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"teamreports/internal/core"
)

const (
	SheetName           = Title
	categoryHeader      = "Category"
	totalHeader         = "Total Value"
	categoryColumnWidth = 30
	totalColumnWidth    = 15
)

func (r *Renderer) renderSpreadsheet(w io.Writer, entries []core.AggregateEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", categoryColumnWidth); err != nil {
		return fmt.Errorf("set category width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", totalColumnWidth); err != nil {
		return fmt.Errorf("set total width: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &[]any{categoryHeader, totalHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{e.Category, e.Total.InexactFloat64()}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
