// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

// Deal Сделка ДКП
type Deal struct {
	ID                int64  `json:"id"`
	DealID            int64  `json:"dealId"`
	Project           string `json:"project"`
	House             int    `json:"house"`
	ObjectType        string `json:"objectType"`
	Object            int    `json:"object"`
	Facing            string `json:"facing,omitempty"`
	DaysLimit         int    `json:"daysLimit"`
	TransferCompleted bool   `json:"transferCompleted"`
	CreatedOn         string `json:"createdOn"`
	UpdatedOn         string `json:"updatedOn"`
	// TransferDeadline Дата, до которой объект должен быть передан
	TransferDeadline string `json:"transferDeadline"`
}

// DueDeal Сделка с подходящим сроком передачи
type DueDeal struct {
	Deal
	DaysLeft int `json:"daysLeft"`
}

// ObjectStat Число объектов в работе по проекту и типу
type ObjectStat struct {
	Project    string `json:"project"`
	ObjectType string `json:"objectType"`
	Count      int    `json:"count"`
}

// Stats Сводка по объектам в работе
type Stats struct {
	Items []ObjectStat `json:"items"`
	Total int          `json:"total"`
}

// TenantResult Итог прохода по аккаунту
type TenantResult struct {
	Tenant       string   `json:"tenant"`
	New          []Deal   `json:"new"`
	Completed    []Deal   `json:"completed"`
	Returned     int      `json:"returned"`
	LimitChanged int      `json:"limitChanged"`
	Unchanged    int      `json:"unchanged"`
	Errors       []string `json:"errors"`
}

// TenantFailure Аккаунт, проход по которому не состоялся
type TenantFailure struct {
	Tenant string `json:"tenant"`
	Error  string `json:"error"`
}

// SyncReport Итог прохода синхронизации
type SyncReport struct {
	PassID     string          `json:"passId"`
	StartedAt  string          `json:"startedAt"`
	DurationMs int64           `json:"durationMs"`
	Results    []TenantResult  `json:"results"`
	Failures   []TenantFailure `json:"failures"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID Идентификатор запроса для обращения в поддержку
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string
