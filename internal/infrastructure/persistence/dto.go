package persistence

import (
	"time"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
)

// dealSchema описывает строку таблицы deals.
type dealSchema struct {
	ID                int64     `db:"id"`
	DealID            int64     `db:"deal_id"`
	Project           string    `db:"project"`
	House             int       `db:"house"`
	ObjectType        string    `db:"object_type"`
	Object            int       `db:"object"`
	Facing            string    `db:"facing"`
	DaysLimit         int       `db:"days_limit"`
	TransferCompleted bool      `db:"transfer_completed"`
	CreatedOn         time.Time `db:"created_on"`
	UpdatedOn         time.Time `db:"updated_on"`
}

func fromDeal(d entity.Deal) dealSchema {
	return dealSchema{
		ID:                d.ID,
		DealID:            d.DealID,
		Project:           d.Project,
		House:             d.House,
		ObjectType:        d.ObjectType.String(),
		Object:            d.Object,
		Facing:            d.Facing,
		DaysLimit:         d.DaysLimit,
		TransferCompleted: d.TransferCompleted,
		CreatedOn:         d.CreatedOn,
		UpdatedOn:         d.UpdatedOn,
	}
}

// toDomain не проверяет object_type: неизвестный тип хранится пустой строкой.
func (s dealSchema) toDomain() entity.Deal {
	return entity.Deal{
		ID:                s.ID,
		DealID:            s.DealID,
		Project:           s.Project,
		House:             s.House,
		ObjectType:        value.ObjectType(s.ObjectType),
		Object:            s.Object,
		Facing:            s.Facing,
		DaysLimit:         s.DaysLimit,
		TransferCompleted: s.TransferCompleted,
		CreatedOn:         s.CreatedOn,
		UpdatedOn:         s.UpdatedOn,
	}
}

func toDomainDeals(schemas []dealSchema) []entity.Deal {
	deals := make([]entity.Deal, 0, len(schemas))
	for _, s := range schemas {
		deals = append(deals, s.toDomain())
	}
	return deals
}

type dealLimitSchema struct {
	DealID    int64 `db:"deal_id"`
	DaysLimit int   `db:"days_limit"`
}

type objectStatSchema struct {
	Project    string `db:"project"`
	ObjectType string `db:"object_type"`
	Count      int    `db:"count"`
}
