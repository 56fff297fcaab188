// Package deadline считает сроки передачи объектов и сводку по непереданным
// сделкам для ежедневных писем.
package deadline

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
)

const day = 24 * time.Hour

// DueDeal описывает сделку, срок передачи которой подходит или уже прошёл.
type DueDeal struct {
	entity.Deal
	Deadline time.Time
	// Полных дней до срока, отрицательное значение означает просрочку.
	DaysLeft int
}

// FindDue отбирает непереданные сделки, до срока передачи которых осталось
// меньше window дней, включая просроченные. Результат отсортирован по сроку.
func FindDue(deals []entity.Deal, now time.Time, window int) []DueDeal {
	var due []DueDeal

	for _, d := range deals {
		if d.TransferCompleted {
			continue
		}

		deadline := d.TransferDeadline()
		left := deadline.Sub(now)
		if left >= time.Duration(window)*day {
			continue
		}

		due = append(due, DueDeal{
			Deal:     d,
			Deadline: deadline,
			DaysLeft: int(left / day),
		})
	}

	slices.SortStableFunc(due, func(a, b DueDeal) int {
		return a.Deadline.Compare(b.Deadline)
	})

	return due
}

// Summary содержит сводку по объектам в работе.
type Summary struct {
	Stats []entity.ObjectStat
	Total int
}

// Summarize считает непереданные сделки по проектам и типам объектов.
// Проекты из projects попадают в сводку даже без сделок.
func Summarize(deals []entity.Deal, projects []string) Summary {
	active := lo.Filter(deals, func(d entity.Deal, _ int) bool {
		return !d.TransferCompleted
	})

	grouped := lo.CountValuesBy(active, func(d entity.Deal) entity.ObjectStat {
		return entity.ObjectStat{Project: d.Project, ObjectType: d.ObjectType}
	})

	stats := make([]entity.ObjectStat, 0, len(grouped))
	for key, n := range grouped {
		key.Count = n
		stats = append(stats, key)
	}

	return MergeStats(stats, projects)
}

// MergeStats дополняет статистику из хранилища нулями для известных
// проектов и типов.
func MergeStats(stats []entity.ObjectStat, projects []string) Summary {
	counts := make(map[entity.ObjectStat]int)
	total := 0

	for _, s := range stats {
		counts[entity.ObjectStat{Project: s.Project, ObjectType: s.ObjectType}] += s.Count
		total += s.Count
	}

	for _, p := range projects {
		for _, t := range value.ObjectTypes() {
			key := entity.ObjectStat{Project: p, ObjectType: t}
			if _, ok := counts[key]; !ok {
				counts[key] = 0
			}
		}
	}

	merged := make([]entity.ObjectStat, 0, len(counts))
	for key, n := range counts {
		key.Count = n
		merged = append(merged, key)
	}

	slices.SortFunc(merged, compareStats)

	return Summary{Stats: merged, Total: total}
}

func compareStats(a, b entity.ObjectStat) int {
	return cmp.Or(
		cmp.Compare(a.Project, b.Project),
		cmp.Compare(typeOrder(a.ObjectType), typeOrder(b.ObjectType)),
	)
}

// typeOrder задаёт порядок показа типов, неизвестный тип в конце.
func typeOrder(t value.ObjectType) int {
	if i := slices.Index(value.ObjectTypes(), t); i >= 0 {
		return i
	}
	return len(value.ObjectTypes())
}
