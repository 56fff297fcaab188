package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/samber/lo"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/deadline"
	"dkp_bot/internal/domain/value"
	"dkp_bot/pkg/errcodes"
	"dkp_bot/pkg/httpx/reply"
	"dkp_bot/pkg/httpx/req"
	"dkp_bot/pkg/rest"
)

type dealStore interface {
	List(ctx context.Context, filter entity.DealFilter) ([]entity.Deal, error)
	Stats(ctx context.Context) ([]entity.ObjectStat, error)
}

// DealServer отдаёт сделки только на чтение: выборку, статистику и дедлайны.
type DealServer struct {
	deals    dealStore
	projects []string
	window   int
	now      func() time.Time
}

func NewDealServer(deals dealStore, projects []string, window int) DealServer {
	return DealServer{
		deals:    deals,
		projects: projects,
		window:   window,
		now:      time.Now,
	}
}

func (s DealServer) getV1Deals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	filter, err := s.readFilter(r)
	if err != nil {
		return err
	}

	deals, err := s.deals.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("deals.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTDeals(deals))

	return nil
}

func (s DealServer) getV1DealsStats(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	stats, err := s.deals.Stats(ctx)
	if err != nil {
		return fmt.Errorf("deals.Stats: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTStats(deadline.MergeStats(stats, s.projects)))

	return nil
}

func (s DealServer) getV1DealsDue(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	days, err := req.QueryInt(r, "days", s.window, errcodes.InvalidDays)
	if err != nil {
		return fmt.Errorf("req.QueryInt: %w", err)
	}
	if days <= 0 {
		return domain.NewErrorf(errcodes.InvalidDays, "days must be positive, got %d", days)
	}

	active := false

	deals, err := s.deals.List(ctx, entity.DealFilter{Completed: &active})
	if err != nil {
		return fmt.Errorf("deals.List: %w", err)
	}

	due := deadline.FindDue(deals, s.now(), days)

	reply.JSON(ctx, w, http.StatusOK, lo.Map(due, func(d deadline.DueDeal, _ int) rest.DueDeal {
		return newRESTDueDeal(d)
	}))

	return nil
}

func (s DealServer) readFilter(r *http.Request) (entity.DealFilter, error) {
	var filter entity.DealFilter

	q := r.URL.Query()

	if project := q.Get("project"); project != "" {
		if !slices.Contains(s.projects, project) {
			return entity.DealFilter{}, domain.NewErrorf(errcodes.InvalidProject, "unknown project %q", project)
		}
		filter.Project = project
	}

	if raw := q.Get("objectType"); raw != "" {
		objectType, err := value.ParseObjectType(raw)
		if err != nil {
			return entity.DealFilter{}, domain.WrapError(err, errcodes.InvalidObjectType, "invalid objectType")
		}
		filter.ObjectType = objectType
	}

	completed, err := req.QueryBool(r, "completed")
	if err != nil {
		return entity.DealFilter{}, fmt.Errorf("req.QueryBool: %w", err)
	}
	filter.Completed = completed

	return filter, nil
}
