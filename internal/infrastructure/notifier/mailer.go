package notifier

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"time"

	"github.com/samber/lo"
	gomail "github.com/wneessen/go-mail"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/service/deadline"
	"dkp_bot/internal/transport/bot/view"
)

const (
	subjectNewDeals = "Новые сделки по ДКП"
	subjectDeadline = "Дедлайн по передаче объектов по ДКП"
	subjectStat     = "Статистика по объектам ДКП"

	headerLayout   = "02.01.2006 15:04"
	defaultTimeout = 15 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

type MailerConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	FromName  string
	Receivers []mail.Address
	Timeout   time.Duration
	// Часовой пояс дат в заголовках писем.
	Location *time.Location
}

// Mailer рассылает письма о сделках всем получателям из конфигурации.
type Mailer struct {
	cfg MailerConfig
	now func() time.Time
}

func NewMailer(cfg MailerConfig) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Mailer{
		cfg: cfg,
		now: time.Now,
	}
}

type dealRow struct {
	Project      string
	House        string
	ObjectType   string
	Object       int
	Facing       string
	RegisteredAt string
	Deadline     string
	DaysLeft     int
}

type dealsData struct {
	Header       string
	ShowDaysLeft bool
	Rows         []dealRow
}

type statRow struct {
	Project    string
	ObjectType string
	Count      int
}

type statData struct {
	Header string
	Stats  []statRow
	Total  int
}

type attachment struct {
	FileName string
	Content  []byte
}

// SendNewDeals отправляет список новых сделок прохода.
func (m *Mailer) SendNewDeals(ctx context.Context, deals []entity.Deal) error {
	if len(deals) == 0 {
		return nil
	}

	content, err := renderTemplate("deals.html", dealsData{
		Header: "Новые объекты по ДКП на " + m.today(),
		Rows:   lo.Map(deals, func(d entity.Deal, _ int) dealRow { return toDealRow(d) }),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, subjectNewDeals, content)
}

// SendDeadline отправляет сделки, срок передачи которых подходит.
func (m *Mailer) SendDeadline(ctx context.Context, due []deadline.DueDeal) error {
	if len(due) == 0 {
		return nil
	}

	content, err := renderTemplate("deals.html", dealsData{
		Header:       "Дедлайн по передаче объектов на " + m.today(),
		ShowDaysLeft: true,
		Rows: lo.Map(due, func(d deadline.DueDeal, _ int) dealRow {
			row := toDealRow(d.Deal)
			row.DaysLeft = d.DaysLeft
			return row
		}),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, subjectDeadline, content)
}

// SendStat отправляет сводку по объектам в работе с xlsx-списком во вложении.
func (m *Mailer) SendStat(ctx context.Context, summary deadline.Summary, deals []entity.Deal) error {
	content, err := renderTemplate("stat.html", statData{
		Header: "Агрегированная информация по всем объектам ДКП на " + m.today(),
		Stats: lo.Map(summary.Stats, func(s entity.ObjectStat, _ int) statRow {
			return statRow{
				Project:    s.Project,
				ObjectType: view.ObjectTypeLabel(entity.Deal{ObjectType: s.ObjectType}),
				Count:      s.Count,
			}
		}),
		Total: summary.Total,
	})
	if err != nil {
		return err
	}

	report, err := BuildReport(deals)
	if err != nil {
		return fmt.Errorf("BuildReport: %w", err)
	}

	return m.send(ctx, subjectStat, content, attachment{FileName: reportFileName, Content: report})
}

func (m *Mailer) today() string {
	return m.now().In(m.cfg.Location).Format(headerLayout)
}

func (m *Mailer) send(ctx context.Context, subject, htmlContent string, attachments ...attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}

	for _, r := range m.cfg.Receivers {
		if err := msg.AddToFormat(r.Name, r.Address); err != nil {
			return fmt.Errorf("smtp to %s: %w", r.Address, err)
		}
	}

	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		if err := msg.AttachReader(att.FileName, bytes.NewReader(att.Content)); err != nil {
			return fmt.Errorf("smtp attach %s: %w", att.FileName, err)
		}
	}

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	logger(ctx).Info(
		"email sent",
		slog.String("subject", subject),
		slog.Int("receivers", len(m.cfg.Receivers)),
	)

	return nil
}

func toDealRow(d entity.Deal) dealRow {
	return dealRow{
		Project:      d.Project,
		House:        view.House(d.House),
		ObjectType:   view.ObjectTypeLabel(d),
		Object:       d.Object,
		Facing:       facing(d),
		RegisteredAt: view.Date(d.CreatedOn),
		Deadline:     view.Date(d.TransferDeadline()),
	}
}

func renderTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}

	return buf.String(), nil
}
