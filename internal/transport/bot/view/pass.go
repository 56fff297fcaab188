package view

import (
	"fmt"
	"strings"
	"time"

	"dkp_bot/internal/domain/service/reconcile"
)

// PassStarted сообщает администратору о запуске прохода.
func PassStarted(t time.Time) string {
	return DateTime(t) + ": запущена синхронизация"
}

// PassSummary собирает сводку прохода для /status.
func PassSummary(r reconcile.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Синхронизация %s (%s)\n", DateTime(r.StartedAt), r.Duration.Round(time.Millisecond))

	for _, res := range r.Results {
		fmt.Fprintf(&sb, "%s: новых %d, передано %d, вернулось %d, изменён срок %d, без изменений %d, ошибок %d\n",
			res.Tenant,
			len(res.New),
			len(res.Completed),
			len(res.Returned),
			len(res.LimitChanged),
			res.Unchanged,
			len(res.Errors),
		)
	}

	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "%s: проход не выполнен\n", f.Tenant)
	}

	return sb.String()
}

// PassErrors собирает текст ошибок прохода для администратора. Пустая строка,
// если ошибок не было.
func PassErrors(r reconcile.Report) string {
	if !r.HasErrors() {
		return ""
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Ошибки синхронизации %s:\n", r.PassID)

	for _, f := range r.Failures {
		fmt.Fprintf(&sb, "%s: %v\n", f.Tenant, f.Err)
	}

	for _, e := range r.DealErrors() {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}
