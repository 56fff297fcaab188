package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App
	Postgres Postgres
	Redis    Redis
	Bot      Bot
	Schedule Schedule
	Mailer   Mailer
	HTTP     HTTP
	// Путь к файлу с описанием аккаунтов CRM и Profitbase.
	ProjectsFile string `env:"PROJECTS_FILE" envDefault:"projects.yaml"`
}

type App struct {
	Name     string `env:"APP_NAME" envDefault:"dkp-bot"`
	Version  string `env:"APP_VERSION" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Bot struct {
	Token   string `env:"BOT_TOKEN,required"`
	AdminID int64  `env:"BOT_ADMIN_ID,required"`
	// Чат, куда уходят уведомления о новых и закрытых сделках.
	GroupID int64 `env:"BOT_GROUP_ID,required"`
	// Время жизни диалога поиска объекта.
	SessionTTL time.Duration `env:"BOT_SESSION_TTL" envDefault:"30m"`
}

type HTTP struct {
	ListenAddress        string        `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	ProbeListenAddress   string        `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
	MetricsListenAddress string        `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
	ShutdownTimeout      time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogFieldMaxLen       int           `env:"HTTP_LOG_FIELD_MAX_LEN" envDefault:"4096"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := env.Parse(&config); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	if err := config.Schedule.Validate(); err != nil {
		return Config{}, fmt.Errorf("schedule: %w", err)
	}

	return config, nil
}

func correctNewlines(s string) string {
	return strings.NewReplacer(`"`, "", `\n`, "\n").Replace(s)
}
