package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/domain/value"
)

func TestRenderDealsTemplate(t *testing.T) {
	rq := require.New(t)

	deal := entity.Deal{
		Project:    "DNS Сити",
		House:      5,
		ObjectType: value.ObjectTypeApartment,
		Object:     12,
		Facing:     "<b>Чистовая</b>",
		DaysLimit:  60,
		CreatedOn:  time.Date(2025, 3, 12, 4, 38, 0, 0, time.UTC),
	}

	row := toDealRow(deal)
	row.DaysLeft = -2

	content, err := renderTemplate("deals.html", dealsData{
		Header:       "Дедлайн по передаче объектов на 01.04.2025 09:00",
		ShowDaysLeft: true,
		Rows:         []dealRow{row},
	})
	rq.NoError(err)

	rq.Contains(content, "<title>Дедлайн по передаче объектов на 01.04.2025 09:00</title>")
	rq.Contains(content, "<th>Осталось дней</th>")
	rq.Contains(content, "<td>DNS Сити</td>")
	rq.Contains(content, "<td>Квартиры</td>")
	rq.Contains(content, "<td>11.05.2025</td>")
	rq.Contains(content, "<td>-2</td>")
	rq.Contains(content, "&lt;b&gt;Чистовая&lt;/b&gt;")

	content, err = renderTemplate("deals.html", dealsData{Rows: []dealRow{row}})
	rq.NoError(err)
	rq.NotContains(content, "Осталось дней")
}

func TestRenderStatTemplate(t *testing.T) {
	rq := require.New(t)

	content, err := renderTemplate("stat.html", statData{
		Header: "Статистика",
		Stats: []statRow{
			{Project: "DNS Сити", ObjectType: "Квартиры", Count: 7},
			{Project: "ЖК Формат", ObjectType: "Машиноместа", Count: 0},
		},
		Total: 7,
	})
	rq.NoError(err)

	rq.Contains(content, "<td>ЖК Формат</td>")
	rq.Contains(content, "<td>7</td>")
	rq.Contains(content, "Всего объектов в работе: 7")
}

func TestMailerToday(t *testing.T) {
	rq := require.New(t)

	moscow := time.FixedZone("MSK", 3*60*60)
	m := NewMailer(MailerConfig{Location: moscow})
	m.now = func() time.Time {
		return time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)
	}

	rq.Equal("01.04.2025 09:00", m.today())
	rq.Equal(defaultTimeout, m.cfg.Timeout)
}
