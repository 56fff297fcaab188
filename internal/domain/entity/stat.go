package entity

import "dkp_bot/internal/domain/value"

// ObjectStat содержит число непереданных объектов проекта данного типа.
type ObjectStat struct {
	Project    string
	ObjectType value.ObjectType
	Count      int
}

// DealFilter задаёт условия выборки сделок для отчётов и API.
type DealFilter struct {
	Project    string
	ObjectType value.ObjectType
	Completed  *bool
}
