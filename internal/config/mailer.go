package config

import (
	"fmt"
	"net/mail"
	"strings"
)

type Mailer struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD" json:"-"`
	From     string `env:"MAIL_FROM"`
	FromName string `env:"MAIL_FROM_NAME" envDefault:"DKP bot"`
	// Формат: "Имя:email;Имя:email".
	Receivers string `env:"MAIL_RECEIVERS"`
}

func (m Mailer) Enabled() bool {
	return m.Host != "" && m.Receivers != ""
}

// ParseReceivers разбирает список получателей из MAIL_RECEIVERS.
func (m Mailer) ParseReceivers() ([]mail.Address, error) {
	var receivers []mail.Address

	for _, item := range strings.Split(correctNewlines(m.Receivers), ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, email, ok := strings.Cut(item, ":")
		if !ok {
			email, name = name, ""
		}

		addr, err := mail.ParseAddress(strings.TrimSpace(email))
		if err != nil {
			return nil, fmt.Errorf("receiver %q: %w", item, err)
		}

		addr.Name = strings.TrimSpace(name)
		receivers = append(receivers, *addr)
	}

	return receivers, nil
}
