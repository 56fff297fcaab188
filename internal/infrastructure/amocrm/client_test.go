package amocrm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"dkp_bot/internal/domain"
	"dkp_bot/internal/domain/entity"
	"dkp_bot/internal/infrastructure/amocrm"
	"dkp_bot/pkg/errcodes"
)

const (
	contractFieldID = 1631153
	contractEnumID  = 4661181
	daysFieldID     = 1635059
	projectFieldID  = 555
)

func lead(id int64, fields string) string {
	return fmt.Sprintf(`{"id":%d,"name":"Сделка #%d","created_at":1741754280,"custom_fields_values":%s}`, id, id, fields)
}

func contract(days string) string {
	f := `[{"field_id":1631153,"field_name":"Тип договора","values":[{"value":"ДКП","enum_id":4661181}]}`
	if days != "" {
		f += `,{"field_id":1635059,"field_name":"Срок передачи","values":[{"value":` + days + `}]}`
	}
	return f + `]`
}

func newClient(t *testing.T, srv *httptest.Server, mutate ...func(*amocrm.Config)) *amocrm.Client {
	t.Helper()

	cfg := amocrm.Config{
		BaseURL:          srv.URL,
		Token:            "secret",
		DefaultProject:   "DNS Сити",
		DefaultDaysLimit: 60,
		RateLimit:        1000,
		MaxPages:         10,
		Fields: amocrm.FieldMapping{
			ContractFieldID:  contractFieldID,
			ContractEnumID:   contractEnumID,
			DaysLimitFieldID: daysFieldID,
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := amocrm.NewClient(cfg)
	require.NoError(t, err)

	return client
}

func TestClientFetchActiveDealCandidates(t *testing.T) {
	rq := require.New(t)

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal("/api/v4/leads", r.URL.Path)
		rq.Equal("Bearer secret", r.Header.Get("Authorization"))
		rq.Equal("7486918", r.URL.Query().Get("filter[statuses][0][pipeline_id]"))
		rq.Equal("142", r.URL.Query().Get("filter[statuses][0][status_id]"))

		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprintf(w, `{"_links":{"next":{"href":"%s/api/v4/leads?filter%%5Bstatuses%%5D%%5B0%%5D%%5Bpipeline_id%%5D=7486918&filter%%5Bstatuses%%5D%%5B0%%5D%%5Bstatus_id%%5D=142&page=2"}},"_embedded":{"leads":[%s,%s,%s]}}`,
				srv.URL,
				lead(1, contract("30")),
				lead(2, `[{"field_id":1631153,"values":[{"value":"Ипотека","enum_id":111}]}]`),
				lead(3, contract(`"45"`)),
			)
		case "2":
			fmt.Fprintf(w, `{"_links":{},"_embedded":{"leads":[%s,%s,%s]}}`,
				lead(4, contract(`"не указан"`)),
				lead(5, contract("")),
				lead(6, "null"),
			)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	client := newClient(t, srv)

	candidates, err := client.FetchActiveDealCandidates(context.Background(), 7486918, 142)
	rq.NoError(err)
	rq.Equal([]entity.DealCandidate{
		{DealID: 1, DaysLimit: 30, Project: "DNS Сити"},
		{DealID: 3, DaysLimit: 45, Project: "DNS Сити"},
		{DealID: 4, DaysLimit: 60, Project: "DNS Сити"},
		{DealID: 5, DaysLimit: 60, Project: "DNS Сити"},
	}, candidates)
}

func projectLead(id int64, project, days string) string {
	f := `[{"field_id":1631153,"values":[{"value":"ДКП","enum_id":4661181}]},{"field_id":555,"values":[{"value":"` + project + `"}]}`
	if days != "" {
		f += `,{"field_id":1635059,"values":[{"value":` + days + `}]}`
	}
	return lead(id, f+`]`)
}

func TestClientProjectMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"_embedded":{"leads":[%s,%s,%s,%s]}}`,
			projectLead(10, "Формат", ""),
			projectLead(11, "Другое", ""),
			projectLead(12, "Формат", "90"),
			projectLead(13, "Формат", "-5"),
		)
	}))
	defer srv.Close()

	testCases := []struct {
		name       string
		daysLimits map[string]int
		want       []entity.DealCandidate
	}{
		{
			name: "Account default",
			want: []entity.DealCandidate{
				{DealID: 10, DaysLimit: 60, Project: "ЖК Формат"},
				{DealID: 11, DaysLimit: 60, Project: "DNS Сити"},
				{DealID: 12, DaysLimit: 90, Project: "ЖК Формат"},
				{DealID: 13, DaysLimit: 60, Project: "ЖК Формат"},
			},
		},
		{
			name:       "Project default",
			daysLimits: map[string]int{"ЖК Формат": 30},
			want: []entity.DealCandidate{
				{DealID: 10, DaysLimit: 30, Project: "ЖК Формат"},
				{DealID: 11, DaysLimit: 60, Project: "DNS Сити"},
				{DealID: 12, DaysLimit: 90, Project: "ЖК Формат"},
				{DealID: 13, DaysLimit: 30, Project: "ЖК Формат"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			client := newClient(t, srv, func(cfg *amocrm.Config) {
				cfg.Fields.ProjectFieldID = projectFieldID
				cfg.Fields.ProjectValues = map[string]string{"Формат": "ЖК Формат"}
				cfg.Fields.ContractValue = "ДКП"
				cfg.DaysLimits = tc.daysLimits
			})

			candidates, err := client.FetchActiveDealCandidates(context.Background(), 1, 2)
			rq.NoError(err)
			rq.Equal(tc.want, candidates)
		})
	}
}

func TestClientFetchErrors(t *testing.T) {
	rq := require.New(t)

	testCases := []struct {
		name    string
		handler http.HandlerFunc
		want    []entity.DealCandidate
		wantErr bool
	}{
		{
			name: "No content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
		},
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
		{
			name: "Unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantErr: true,
		},
		{
			name: "Broken JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"_embedded":`))
			},
			wantErr: true,
		},
		{
			name: "Endless pagination",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"_links":{"next":{"href":"%s"}},"_embedded":{"leads":[]}}`, r.URL.RequestURI())
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(*testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			candidates, err := newClient(t, srv).FetchActiveDealCandidates(context.Background(), 1, 2)
			if tc.wantErr {
				rq.Error(err)
				rq.True(domain.HasCode(err, errcodes.RemoteFetchFailed), err.Error())
				rq.Nil(candidates)
				return
			}

			rq.NoError(err)
			rq.Equal(tc.want, candidates)
		})
	}
}

func TestClientPagesRestartable(t *testing.T) {
	rq := require.New(t)

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "" {
			fmt.Fprintf(w, `{"_links":{"next":{"href":"/api/v4/leads?page=2"}},"_embedded":{"leads":[%s]}}`, lead(1, "[]"))
			return
		}
		fmt.Fprintf(w, `{"_embedded":{"leads":[%s]}}`, lead(2, "[]"))
	}))
	defer srv.Close()

	client := newClient(t, srv)
	pages := client.Pages(context.Background(), 1, 2)

	for range 2 {
		var ids []int64
		for page, err := range pages {
			rq.NoError(err)
			for _, l := range page.Leads {
				ids = append(ids, l.ID)
			}
		}
		rq.Equal([]int64{1, 2}, ids)
	}

	// Ранний выход не запрашивает следующие страницы.
	for range pages {
		break
	}

	rq.Equal(int32(5), calls.Load())
}

func TestClientListFunnels(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal("/api/v4/leads/pipelines/7486918", r.URL.Path)
		w.Write([]byte(`{"id":7486918,"name":"Продажи","_embedded":{"statuses":[
			{"id":142,"name":"Успешно реализовано"},
			{"id":143,"name":"Передача ключей"},
			{"id":144,"name":"Ожидает передачи"}
		]}}`))
	}))
	defer srv.Close()

	funnels, err := newClient(t, srv).ListFunnels(context.Background(), 7486918)
	rq.NoError(err)
	rq.Equal([]entity.Funnel{
		{ID: 142, Name: "Успешно реализовано"},
		{ID: 143, Name: "Передача ключей"},
		{ID: 144, Name: "Ожидает передачи"},
	}, funnels)
}
