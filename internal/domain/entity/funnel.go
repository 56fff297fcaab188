package entity

// Funnel описывает этап воронки CRM.
type Funnel struct {
	ID   int64
	Name string
}
