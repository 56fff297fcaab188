package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	defaultAmoRateLimit = 7
	defaultAmoMaxPages  = 100
	defaultHTTPTimeout  = 30 * time.Second
)

// Projects описывает аккаунты, которые синхронизирует бот. Каждый tenant
// объединяет аккаунты amoCRM и Profitbase одного застройщика.
type Projects struct {
	Tenants []Tenant `yaml:"tenants" validate:"required,min=1,unique=Name,dive"`
}

type Tenant struct {
	Name string `yaml:"name" validate:"required"`
	// Проект по умолчанию для сделок аккаунта.
	Project          string `yaml:"project" validate:"required"`
	DefaultDaysLimit int    `yaml:"default_days_limit" validate:"gte=0"`
	// Срок передачи по умолчанию для отдельных проектов аккаунта.
	DaysLimits map[string]int `yaml:"days_limits" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	// Подстрока в названии этапа воронки, по которой выбираются этапы передачи.
	FunnelFilter string       `yaml:"funnel_filter" validate:"required"`
	AmoCRM       AmoCRM       `yaml:"amocrm"`
	Profitbase   Profitbase   `yaml:"profitbase"`
	Fields       FieldMapping `yaml:"fields"`
}

type AmoCRM struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	TokenEnv   string `yaml:"token_env" validate:"required"`
	Token      string `yaml:"-" json:"-" validate:"required"`
	PipelineID int64  `yaml:"pipeline_id" validate:"gt=0"`
	// Запросов в секунду.
	RateLimit float64       `yaml:"rate_limit" validate:"gte=0"`
	MaxPages  int           `yaml:"max_pages" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Profitbase struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	APIKeyEnv string        `yaml:"api_key_env" validate:"required"`
	APIKey    string        `yaml:"-" json:"-" validate:"required"`
	Timeout   time.Duration `yaml:"timeout"`
}

type FieldMapping struct {
	ContractType     ContractTypeField `yaml:"contract_type"`
	DaysLimitFieldID int64             `yaml:"days_limit_field_id" validate:"gt=0"`
	Project          *ProjectField     `yaml:"project" validate:"omitempty"`
}

// ContractTypeField задаёт обязательное поле «тип договора». Сделка проходит
// фильтр, если у поля есть значение с указанным enum_id и/или текстом.
type ContractTypeField struct {
	FieldID int64  `yaml:"field_id" validate:"gt=0"`
	EnumID  int64  `yaml:"enum_id" validate:"required_without=Value"`
	Value   string `yaml:"value" validate:"required_without=EnumID"`
}

// ProjectField позволяет одному аккаунту CRM вести несколько проектов:
// значение поля сделки отображается в название проекта.
type ProjectField struct {
	FieldID int64             `yaml:"field_id" validate:"gt=0"`
	Values  map[string]string `yaml:"values" validate:"required,min=1,dive,required"`
}

// ProjectNames возвращает все проекты, которые может вернуть аккаунт.
func (t Tenant) ProjectNames() []string {
	names := []string{t.Project}
	if t.Fields.Project != nil {
		names = append(names, lo.Values(t.Fields.Project.Values)...)
	}

	names = lo.Uniq(names)
	slices.Sort(names)

	return names
}

// ProjectNames возвращает все проекты всех аккаунтов.
func (p Projects) ProjectNames() []string {
	names := lo.Uniq(lo.FlatMap(p.Tenants, func(t Tenant, _ int) []string {
		return t.ProjectNames()
	}))
	slices.Sort(names)

	return names
}

// LoadProjects читает файл аккаунтов, подставляет секреты из окружения и
// проверяет результат.
func LoadProjects(path string) (Projects, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Projects{}, fmt.Errorf("os.ReadFile: %w", err)
	}

	return ParseProjects(raw, os.LookupEnv)
}

func ParseProjects(raw []byte, lookupEnv func(string) (string, bool)) (Projects, error) {
	var projects Projects

	if err := yaml.Unmarshal(raw, &projects); err != nil {
		return Projects{}, fmt.Errorf("yaml.Unmarshal: %w", err)
	}

	for i := range projects.Tenants {
		t := &projects.Tenants[i]

		t.AmoCRM.Token, _ = lookupEnv(t.AmoCRM.TokenEnv)
		t.Profitbase.APIKey, _ = lookupEnv(t.Profitbase.APIKeyEnv)

		if t.AmoCRM.RateLimit == 0 {
			t.AmoCRM.RateLimit = defaultAmoRateLimit
		}
		if t.AmoCRM.MaxPages == 0 {
			t.AmoCRM.MaxPages = defaultAmoMaxPages
		}
		if t.AmoCRM.Timeout == 0 {
			t.AmoCRM.Timeout = defaultHTTPTimeout
		}
		if t.Profitbase.Timeout == 0 {
			t.Profitbase.Timeout = defaultHTTPTimeout
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(projects); err != nil {
		return Projects{}, fmt.Errorf("validate.Struct: %w", err)
	}

	if err := projects.checkScopes(); err != nil {
		return Projects{}, err
	}

	return projects, nil
}

// checkScopes проверяет, что каждый проект ведёт ровно один аккаунт.
func (p Projects) checkScopes() error {
	owners := make(map[string]string)

	for _, t := range p.Tenants {
		names := t.ProjectNames()

		for _, name := range names {
			if owner, ok := owners[name]; ok {
				return fmt.Errorf("project %q belongs to tenants %q and %q", name, owner, t.Name)
			}
			owners[name] = t.Name
		}

		for name := range t.DaysLimits {
			if !slices.Contains(names, name) {
				return fmt.Errorf("tenant %q: days limit for unknown project %q", t.Name, name)
			}
		}
	}

	return nil
}
