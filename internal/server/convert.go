package server

import (
	"time"

	"github.com/samber/lo"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/deadline"
	"dkp_bot/internal/domain/service/reconcile"
	"dkp_bot/pkg/rest"
)

const dateLayout = time.DateOnly

func newRESTDeal(d entity.Deal) rest.Deal {
	return rest.Deal{
		ID:                d.ID,
		DealID:            d.DealID,
		Project:           d.Project,
		House:             d.House,
		ObjectType:        d.ObjectType.String(),
		Object:            d.Object,
		Facing:            d.Facing,
		DaysLimit:         d.DaysLimit,
		TransferCompleted: d.TransferCompleted,
		CreatedOn:         d.CreatedOn.Format(time.RFC3339),
		UpdatedOn:         d.UpdatedOn.Format(time.RFC3339),
		TransferDeadline:  d.TransferDeadline().Format(dateLayout),
	}
}

func newRESTDeals(deals []entity.Deal) []rest.Deal {
	// Пустой список, а не null.
	result := make([]rest.Deal, 0, len(deals))
	for _, d := range deals {
		result = append(result, newRESTDeal(d))
	}
	return result
}

func newRESTDueDeal(d deadline.DueDeal) rest.DueDeal {
	return rest.DueDeal{
		Deal:     newRESTDeal(d.Deal),
		DaysLeft: d.DaysLeft,
	}
}

func newRESTStats(summary deadline.Summary) rest.Stats {
	return rest.Stats{
		Items: lo.Map(summary.Stats, func(s entity.ObjectStat, _ int) rest.ObjectStat {
			return rest.ObjectStat{
				Project:    s.Project,
				ObjectType: s.ObjectType.String(),
				Count:      s.Count,
			}
		}),
		Total: summary.Total,
	}
}

func newRESTSyncReport(report reconcile.Report) rest.SyncReport {
	return rest.SyncReport{
		PassID:     report.PassID.String(),
		StartedAt:  report.StartedAt.Format(time.RFC3339),
		DurationMs: report.Duration.Milliseconds(),
		Results: lo.Map(report.Results, func(res reconcile.PassResult, _ int) rest.TenantResult {
			return rest.TenantResult{
				Tenant:       res.Tenant,
				New:          newRESTDeals(res.New),
				Completed:    newRESTDeals(res.Completed),
				Returned:     len(res.Returned),
				LimitChanged: len(res.LimitChanged),
				Unchanged:    res.Unchanged,
				Errors: lo.Map(res.Errors, func(e reconcile.DealError, _ int) string {
					return e.Error()
				}),
			}
		}),
		Failures: lo.Map(report.Failures, func(f reconcile.TenantFailure, _ int) rest.TenantFailure {
			return rest.TenantFailure{Tenant: f.Tenant, Error: f.Err.Error()}
		}),
	}
}
