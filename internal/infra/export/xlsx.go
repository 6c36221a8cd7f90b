// Package export renders report rows as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/raycargo/backoffice/internal/domain"
)

// ContentType is the MIME type of the workbooks written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const movementsSheet = "Movements"

var movementHeaders = []string{"Date", "Province", "Type", "Amount", "Operation", "Movement ID"}

// WriteMovements writes one row per movement, followed by a total row.
func WriteMovements(w io.Writer, movements []domain.MovementView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", movementsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range movementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(movementsSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	total := 0.0
	for i, m := range movements {
		row := i + 2
		amount := m.Amount.InexactFloat64()
		total += amount

		ref := ""
		if m.OperationRef != nil {
			ref = *m.OperationRef
		}
		values := []any{m.Date.UTC().Format(time.RFC3339), m.Province.Name, string(m.Type), amount, ref, m.ID}
		if err := f.SetSheetRow(movementsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}

	totalRow := len(movements) + 2
	if err := f.SetCellValue(movementsSheet, fmt.Sprintf("C%d", totalRow), "Total"); err != nil {
		return fmt.Errorf("write total: %w", err)
	}
	if err := f.SetCellValue(movementsSheet, fmt.Sprintf("D%d", totalRow), total); err != nil {
		return fmt.Errorf("write total: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
