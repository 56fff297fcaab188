package notifier

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/transport/bot/view"
)

const (
	reportSheet    = "ДКП"
	reportFileName = "report.xlsx"
)

//nolint:gochecknoglobals
var (
	reportHeader = []any{
		"Проект", "Дом", "Тип объекта", "Номер объекта",
		"Тип отделки", "Дата регистрации", "Передать объект до",
	}
	reportColumnWidths = []float64{15, 10, 15, 22, 22, 22, 22}
)

// BuildReport собирает xlsx со списком сделок для вложения в письмо.
func BuildReport(deals []entity.Deal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("f.SetSheetName: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("f.NewStyle: %w", err)
	}

	rowStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("f.NewStyle: %w", err)
	}

	for i, width := range reportColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("excelize.ColumnNumberToName: %w", err)
		}
		if err := f.SetColWidth(reportSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("f.SetColWidth: %w", err)
		}
	}

	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return nil, fmt.Errorf("f.SetSheetRow: %w", err)
	}
	if err := f.SetRowStyle(reportSheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("f.SetRowStyle: %w", err)
	}

	for i, d := range deals {
		row := i + 2

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, fmt.Errorf("excelize.CoordinatesToCellName: %w", err)
		}

		values := []any{
			d.Project,
			view.House(d.House),
			view.ObjectTypeLabel(d),
			d.Object,
			facing(d),
			view.Date(d.CreatedOn),
			view.Date(d.TransferDeadline()),
		}

		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("f.SetSheetRow: %w", err)
		}
		if err := f.SetRowStyle(reportSheet, row, row, rowStyle); err != nil {
			return nil, fmt.Errorf("f.SetRowStyle: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("f.WriteToBuffer: %w", err)
	}

	return buf.Bytes(), nil
}

func facing(d entity.Deal) string {
	if !d.ObjectType.HasFacing() {
		return ""
	}
	return d.Facing
}
