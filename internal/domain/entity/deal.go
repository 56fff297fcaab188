package entity

import (
	"time"

	"dkp_bot/internal/domain/value"
)

// HouseUnknown обозначает номер дома, который не удалось разобрать.
const HouseUnknown = -1

// Deal описывает сохранённую сделку ДКП. Строки никогда не удаляются, меняются только
// days_limit и флаг transfer_completed.
type Deal struct {
	ID                int64
	DealID            int64
	Project           string
	House             int
	ObjectType        value.ObjectType
	Object            int
	Facing            string
	DaysLimit         int
	TransferCompleted bool
	CreatedOn         time.Time
	UpdatedOn         time.Time
}

func (d Deal) Key() DealKey {
	return DealKey{Project: d.Project, DealID: d.DealID}
}

// TransferDeadline возвращает дату, до которой объект должен быть передан.
func (d Deal) TransferDeadline() time.Time {
	return d.CreatedOn.AddDate(0, 0, d.DaysLimit)
}

// DealKey идентифицирует сделку парой (проект, id в CRM).
type DealKey struct {
	Project string
	DealID  int64
}

// DealLimit описывает активную сделку из локального снимка.
type DealLimit struct {
	DealID    int64
	DaysLimit int
}

// DealCandidate описывает активную сделку, увиденную в CRM в текущем проходе.
type DealCandidate struct {
	DealID    int64
	DaysLimit int
	Project   string
}

func (c DealCandidate) Key() DealKey {
	return DealKey{Project: c.Project, DealID: c.DealID}
}
