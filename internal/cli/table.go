package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/internal/transport/bot/view"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// writeReport печатает сводку прохода, новые сделки и ошибки.
func writeReport(w io.Writer, report reconcile.Report) {
	fmt.Fprintf(w, "Проход %s, %s, %d мс\n", report.PassID, view.DateTime(report.StartedAt), report.Duration.Milliseconds())

	summary := newTable(w)
	summary.AppendHeader(table.Row{"Аккаунт", "Новые", "Переданы", "Возвращены", "Срок изменён", "Без изменений", "Ошибки"})

	for _, res := range report.Results {
		summary.AppendRow(table.Row{
			res.Tenant,
			len(res.New),
			len(res.Completed),
			len(res.Returned),
			len(res.LimitChanged),
			res.Unchanged,
			len(res.Errors),
		})
	}

	for _, f := range report.Failures {
		summary.AppendRow(table.Row{
			f.Tenant,
			text.FgRed.Sprint("проход не выполнен: " + f.Err.Error()),
		})
	}

	summary.Render()

	if deals := report.New(); len(deals) > 0 {
		t := newTable(w)
		t.SetTitle("Новые сделки")
		t.AppendHeader(table.Row{"Сделка", "Проект", "Дом", "Тип", "Объект", "Срок"})

		for _, d := range deals {
			t.AppendRow(table.Row{
				d.DealID,
				d.Project,
				view.House(d.House),
				view.ObjectTypeLabel(d),
				d.Object,
				view.Date(d.TransferDeadline()),
			})
		}

		t.Render()
	}

	if errs := report.DealErrors(); len(errs) > 0 {
		t := newTable(w)
		t.SetTitle("Ошибки по сделкам")
		t.AppendHeader(table.Row{"Проект", "Сделка", "Ошибка"})

		for _, e := range errs {
			t.AppendRow(table.Row{e.Key.Project, e.Key.DealID, e.Err.Error()})
		}

		t.Render()
	}
}
