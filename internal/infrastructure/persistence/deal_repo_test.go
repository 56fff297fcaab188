package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
	"dkp_bot/internal/infrastructure/persistence"
	"dkp_bot/pkg/dbtest"
	"dkp_bot/pkg/errcodes"
)

const (
	projectCity   = "DNS Сити"
	projectFormat = "ЖК Формат"
)

func newRepo(t *testing.T) *persistence.DealRepository {
	t.Helper()

	db := dbtest.Connect(t, persistence.Migrate, "deals")
	require.NoError(t, dbtest.MigrateFromFile(db, "testdata/seed.sql"))

	return persistence.NewDealRepository(db)
}

func TestDealRepositoryReadActiveIDs(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	city, err := repo.ReadActiveIDs(ctx, projectCity)
	rq.NoError(err)
	rq.Equal([]entity.DealLimit{
		{DealID: 100, DaysLimit: 60},
		{DealID: 101, DaysLimit: 60},
		{DealID: 102, DaysLimit: 60},
	}, city)

	format, err := repo.ReadActiveIDs(ctx, projectFormat)
	rq.NoError(err)
	rq.Equal([]entity.DealLimit{{DealID: 200, DaysLimit: 30}}, format)

	none, err := repo.ReadActiveIDs(ctx, "unknown")
	rq.NoError(err)
	rq.Empty(none)
}

func TestDealRepositoryCreate(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	deal := entity.Deal{
		DealID:     300,
		Project:    projectFormat,
		House:      entity.HouseUnknown,
		ObjectType: value.ObjectTypeApartment,
		Object:     77,
		Facing:     "Без отделки",
		DaysLimit:  45,
		CreatedOn:  time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC),
	}

	created, err := repo.Create(ctx, deal)
	rq.NoError(err)
	rq.NotZero(created.ID)
	rq.False(created.TransferCompleted)

	got, err := repo.Get(ctx, projectFormat, 300)
	rq.NoError(err)
	rq.Equal(deal.House, got.House)
	rq.Equal(deal.ObjectType, got.ObjectType)
	rq.Equal(deal.DaysLimit, got.DaysLimit)
	rq.True(deal.CreatedOn.Equal(got.CreatedOn))

	_, err = repo.Create(ctx, deal)
	rq.Error(err)
	rq.True(domain.HasCode(err, errcodes.DealAlreadyExists))

	// Тот же deal_id в другом проекте считается другой сделкой.
	deal.Project = projectCity
	_, err = repo.Create(ctx, deal)
	rq.NoError(err)
}

func TestDealRepositoryMarkNotCompleted(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	testCases := []struct {
		name    string
		project string
		dealID  int64
		want    bool
	}{
		{name: "Completed row", project: projectCity, dealID: 103, want: true},
		{name: "Already active", project: projectCity, dealID: 100, want: false},
		{name: "Missing row", project: projectCity, dealID: 999, want: false},
		{name: "Other project", project: projectFormat, dealID: 103, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			ok, err := repo.MarkNotCompleted(ctx, tc.project, tc.dealID)
			rq.NoError(err)
			rq.Equal(tc.want, ok)
		})
	}

	got, err := repo.Get(ctx, projectCity, 103)
	rq.NoError(err)
	rq.False(got.TransferCompleted)
}

func TestDealRepositoryMarkCompleted(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	before, err := repo.Get(ctx, projectCity, 100)
	rq.NoError(err)

	deals, err := repo.MarkCompleted(ctx, projectCity, []int64{101, 100, 103})
	rq.NoError(err)
	rq.Len(deals, 3)
	rq.Equal(int64(100), deals[0].DealID)

	for _, d := range deals {
		rq.True(d.TransferCompleted)
	}

	rq.Equal(before.Object, deals[0].Object)
	rq.Equal(before.Facing, deals[0].Facing)
	rq.Equal(before.DaysLimit, deals[0].DaysLimit)

	again, err := repo.MarkCompleted(ctx, projectCity, []int64{100, 101, 103})
	rq.NoError(err)
	rq.Len(again, 3)

	empty, err := repo.MarkCompleted(ctx, projectCity, nil)
	rq.NoError(err)
	rq.Empty(empty)

	active, err := repo.ReadActiveIDs(ctx, projectCity)
	rq.NoError(err)
	rq.Equal([]entity.DealLimit{{DealID: 102, DaysLimit: 60}}, active)
}

func TestDealRepositorySetDaysLimit(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	rq.NoError(repo.SetDaysLimit(ctx, projectCity, 100, 90))

	got, err := repo.Get(ctx, projectCity, 100)
	rq.NoError(err)
	rq.Equal(90, got.DaysLimit)

	err = repo.SetDaysLimit(ctx, projectCity, 999, 10)
	rq.True(domain.HasCode(err, errcodes.DealNotFound))
}

func TestDealRepositoryLookups(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	houses, err := repo.ListHouses(ctx, projectCity, value.ObjectTypeApartment)
	rq.NoError(err)
	rq.Equal([]int{5}, houses)

	objects, err := repo.ListObjects(ctx, projectCity, value.ObjectTypeApartment, 5)
	rq.NoError(err)
	rq.Equal([]int{12, 14}, objects)

	deal, err := repo.FindByObject(ctx, projectCity, value.ObjectTypeApartment, 5, 12)
	rq.NoError(err)
	rq.Equal(int64(100), deal.DealID)
	rq.Equal("Чистовая", deal.Facing)

	_, err = repo.FindByObject(ctx, projectCity, value.ObjectTypeApartment, 7, 1)
	rq.True(domain.HasCode(err, errcodes.DealNotFound))

	completed := false
	list, err := repo.List(ctx, entity.DealFilter{Project: projectCity, Completed: &completed})
	rq.NoError(err)
	rq.Len(list, 3)

	all, err := repo.List(ctx, entity.DealFilter{})
	rq.NoError(err)
	rq.Len(all, 5)

	stats, err := repo.Stats(ctx)
	rq.NoError(err)
	rq.Equal([]entity.ObjectStat{
		{Project: projectCity, ObjectType: value.ObjectTypeApartment, Count: 2},
		{Project: projectCity, ObjectType: value.ObjectTypeParkingSpot, Count: 1},
		{Project: projectFormat, ObjectType: value.ObjectTypeStoragePantry, Count: 1},
	}, stats)
}
