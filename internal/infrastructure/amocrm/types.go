package amocrm

import (
	"bytes"
	"strconv"
	"strings"
)

type link struct {
	Href string `json:"href"`
}

type links struct {
	Next *link `json:"next"`
}

type leadsResponse struct {
	Links    links `json:"_links"`
	Embedded struct {
		Leads []Lead `json:"leads"`
	} `json:"_embedded"`
}

func (r leadsResponse) nextHref() string {
	if r.Links.Next == nil {
		return ""
	}
	return r.Links.Next.Href
}

type pipelineResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Embedded struct {
		Statuses []status `json:"statuses"`
	} `json:"_embedded"`
}

type status struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Lead содержит поля сделки amoCRM, нужные синхронизации.
type Lead struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	CreatedAt          int64         `json:"created_at"`
	CustomFieldsValues []CustomField `json:"custom_fields_values"`
}

type CustomField struct {
	FieldID   int64        `json:"field_id"`
	FieldName string       `json:"field_name"`
	Values    []FieldValue `json:"values"`
}

type FieldValue struct {
	Value  FlexValue `json:"value"`
	EnumID int64     `json:"enum_id"`
}

// attributes строит индекс field_id -> значения.
func (l Lead) attributes() map[int64][]FieldValue {
	attrs := make(map[int64][]FieldValue, len(l.CustomFieldsValues))
	for _, f := range l.CustomFieldsValues {
		attrs[f.FieldID] = append(attrs[f.FieldID], f.Values...)
	}
	return attrs
}

// LeadsPage описывает одну страницу выдачи списка сделок.
type LeadsPage struct {
	Number int
	Leads  []Lead
}

// FlexValue хранит значение кастомного поля. amoCRM отдаёт его то строкой, то
// числом, то bool, в зависимости от типа поля.
type FlexValue struct {
	raw string
}

func NewFlexValue(s string) FlexValue {
	return FlexValue{raw: s}
}

func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		v.raw = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.raw = s
		return nil
	}

	v.raw = string(data)
	return nil
}

func (v FlexValue) String() string {
	return v.raw
}

// Int разбирает значение как целое. Дробная часть у чисел вида "30.0"
// допускается, если она нулевая.
func (v FlexValue) Int() (int64, bool) {
	s := strings.TrimSpace(v.raw)
	if s == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}

	return int64(f), true
}
