package dashboardhttp

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
	"github.com/superstore-bi/dashboard/internal/format"
	"github.com/superstore-bi/dashboard/internal/kpi/client"
	"github.com/superstore-bi/dashboard/internal/platform/httpx"
	"github.com/superstore-bi/dashboard/internal/view"
)

var fixtures = map[string]string{
	"/": `{"message":"API KPI Superstore","version":"1.0.0","dataset":"Sample - Superstore","nb_lignes":9994,
		"periode":{"debut":"2021-01-01","fin":"2022-12-31"}}`,
	"/filters/valeurs": `{"categories":["Furniture","Office Supplies","Technology"],"regions":["Central","East","South","West"],
		"segments":["Consumer","Corporate","Home Office"],"etats":["California","Texas"],
		"plage_dates":{"min":"2021-01-01","max":"2022-12-31"}}`,
	"/kpi/globaux": `{"ca_total":2297200.86,"nb_commandes":5009,"nb_clients":793,"panier_moyen":458.61,
		"quantite_vendue":37873,"profit_total":286397.02,"marge_moyenne":12.47}`,
	"/kpi/produits/top": `[{"produit":"Canon imageCLASS 2200 Advanced Copier","categorie":"Technology","ca":61599.82,"quantite":20,"profit":25199.93},
		{"produit":"Cubify CubeX 3D Printer Double Head Print","categorie":"Technology","ca":11099.96,"quantite":9,"profit":-8879.97}]`,
	"/kpi/produits/marge": `{"top":[{"produit":"Canon imageCLASS 2200 Advanced Copier","categorie":"Technology","ca":61599.82,"profit":25199.93,"marge_pct":40.91}],
		"bottom":[{"produit":"Cubify CubeX 3D Printer Double Head Print","categorie":"Technology","ca":11099.96,"profit":-8879.97,"marge_pct":-80.0}]}`,
	"/kpi/categories": `[{"categorie":"Technology","ca":836154.03,"profit":145454.95,"nb_commandes":1544,"marge_pct":17.4},
		{"categorie":"Furniture","ca":741999.8,"profit":18451.27,"nb_commandes":1764,"marge_pct":2.49}]`,
	"/kpi/temporel": `[{"periode":"2022-10","ca":77776.92,"profit":9328.66,"nb_commandes":147,"quantite":1000},
		{"periode":"2022-11","ca":118447.83,"profit":9690.1,"nb_commandes":261,"quantite":1500},
		{"periode":"2022-12","ca":83829.32,"profit":8483.35,"nb_commandes":224,"quantite":1200}]`,
	"/kpi/temporel/comparaison": `{"series":[{"periode":"2022-12","ca":83829.32,"ca_prec":118447.83,"evolution_pct":-29.23}],
		"latest":{"periode":"2022-12","ca":83829.32,"ca_prec":118447.83,"evolution_pct":-29.23}}`,
	"/kpi/geographique": `[{"region":"West","ca":725457.82,"profit":108418.45,"nb_clients":686,"nb_commandes":1611},
		{"region":"East","ca":678781.24,"profit":91522.78,"nb_clients":674,"nb_commandes":1401}]`,
	"/kpi/clients/fidelite": `{"total_clients":793,"clients_recurrents":781,"clients_nouveaux":12,"repeat_rate_pct":98.49,
		"avg_orders_per_client":6.32,"ca_clients_recurrents":2290000.0,"share_ca_recurrent_pct":99.7,"avg_days_between_orders":110.5}`,
	"/kpi/clients": `{"top_clients":[{"customer_id":"SM-20320","nom":"Sean Miller","ca_total":25043.05,"profit_total":-1980.74,"nb_commandes":5,"valeur_commande_moy":5008.61}],
		"recurrence":{"clients_1_achat":12,"clients_recurrents":781,"nb_commandes_moyen":6.32,"total_clients":793},
		"segments":[{"segment":"Consumer","ca":1161401.34,"profit":134119.21,"nb_clients":409}]}`,
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []*url.URL
	failing  map[string]int
	server   *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{failing: map[string]int{}}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.URL)
		status := b.failing[r.URL.Path]
		b.mu.Unlock()
		if status != 0 {
			http.Error(w, `{"detail":"boom"}`, status)
			return
		}
		body, ok := fixtures[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) fail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[path] = status
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, u := range b.requests {
		if u.Path == path {
			n++
		}
	}
	return n
}

func (b *fakeBackend) last(path string) url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Path == path {
			return b.requests[i].Query()
		}
	}
	return nil
}

type harness struct {
	backend  *fakeBackend
	server   *httptest.Server
	client   *http.Client
	sessions *dashboard.Sessions
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	backend := newFakeBackend(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	kpiClient, err := client.New(backend.server.URL)
	require.NoError(t, err)

	sessions := dashboard.NewSessions(func() *dashboard.Orchestrator {
		return dashboard.NewOrchestrator(kpiClient, dashboard.Options{Logger: logger})
	}, dashboard.SessionOptions{Logger: logger})
	t.Cleanup(sessions.Close)

	engine, err := view.NewEngine()
	require.NoError(t, err)
	builder := ui.NewBuilder(format.MustNew("fr-FR", "EUR"), nil, dashboard.DefaultTopLimit)

	router := chi.NewRouter()
	NewHandler(logger, sessions, kpiClient, engine, builder, opts).MountRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		backend:  backend,
		server:   server,
		sessions: sessions,
		client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndexRedirectsToDashboard(t *testing.T) {
	h := newHarness(t, Options{})
	resp, _ := h.get(t, "/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, ui.DashboardPath, resp.Header.Get("Location"))
}

func TestFirstVisitLoadsDefaults(t *testing.T) {
	h := newHarness(t, Options{})
	resp, body := h.get(t, ui.DashboardPath)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Chiffre d&#39;Affaires")
	assert.Contains(t, body, "Correction du marché")
	assert.Contains(t, body, "Fidélisation saine")
	assert.Contains(t, body, `data-series="overlay"`)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be issued")
	assert.True(t, cookie.HttpOnly)

	q := h.backend.last("/kpi/globaux")
	assert.Equal(t, "2021-01-01", q.Get("date_debut"))
	assert.Equal(t, "2022-12-31", q.Get("date_fin"))
	assert.Len(t, q, 2, "only the two default dates are sent")
	assert.Equal(t, 1, h.backend.count("/filters/valeurs"))
	assert.Equal(t, 1, h.sessions.Len())
}

func TestCriterionChangeRefetchesRanking(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath)

	resp, body := h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&tri_par=profit&periode=mois&onglet=produits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "TOP 10 PERFORMERS (PROFIT / PERTES)")

	q := h.backend.last("/kpi/produits/top")
	assert.Equal(t, "profit", q.Get("tri_par"))
	assert.Equal(t, "10", q.Get("limite"))
	assert.Equal(t, 1, h.backend.count("/filters/valeurs"), "the domain is loaded once per session")
}

func TestTabOnlyChangeDoesNotRefetch(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath)
	before := h.backend.count("/kpi/globaux")

	resp, body := h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&tri_par=ca&periode=mois&onglet=geo")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "RÉPARTITION CLIENTÈLE")
	assert.Equal(t, before, h.backend.count("/kpi/globaux"))
}

func TestClearedFilterIsNotSent(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&region=West")
	assert.Equal(t, "West", h.backend.last("/kpi/globaux").Get("region"))

	h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&region=")
	_, sent := h.backend.last("/kpi/globaux")["region"]
	assert.False(t, sent)
}

func TestAbsentFiltersKeepCurrentSelection(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath+"?categorie=Furniture&region=West&segment=Consumer")

	resp, _ := h.get(t, ui.APIPath+"?tri_par=profit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := h.backend.last("/kpi/produits/top")
	assert.Equal(t, "profit", q.Get("tri_par"))
	assert.Equal(t, "Furniture", q.Get("categorie"))
	assert.Equal(t, "West", q.Get("region"))
	assert.Equal(t, "Consumer", q.Get("segment"))

	h.get(t, ui.DashboardPath+"?categorie=")
	q = h.backend.last("/kpi/globaux")
	_, sent := q["categorie"]
	assert.False(t, sent, "an explicitly empty filter clears the constraint")
	assert.Equal(t, "West", q.Get("region"))
}

func TestMissingDatesKeepCurrentRange(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath+"?date_debut=2022-01-01&date_fin=2022-06-30")
	h.get(t, ui.DashboardPath+"?categorie=Furniture")

	q := h.backend.last("/kpi/globaux")
	assert.Equal(t, "2022-01-01", q.Get("date_debut"))
	assert.Equal(t, "2022-06-30", q.Get("date_fin"))
	assert.Equal(t, "Furniture", q.Get("categorie"))

	h.get(t, ui.DashboardPath+"?date_debut=&date_fin=2022-06-30")
	_, sent := h.backend.last("/kpi/globaux")["date_debut"]
	assert.False(t, sent, "an explicitly empty date clears the constraint")
}

func TestBareDashboardReloadsDefaults(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath+"?region=West&tri_par=quantite")
	before := h.backend.count("/kpi/globaux")

	resp, _ := h.get(t, ui.DashboardPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, before+1, h.backend.count("/kpi/globaux"))
	assert.Equal(t, "ca", h.backend.last("/kpi/produits/top").Get("tri_par"))
	_, sent := h.backend.last("/kpi/globaux")["region"]
	assert.False(t, sent)
}

func TestInvalidParamsAreRejected(t *testing.T) {
	h := newHarness(t, Options{})

	resp, body := h.get(t, ui.DashboardPath+"?region=Mars")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Mars")

	resp, _ = h.get(t, ui.DashboardPath+"?tri_par=marge")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.get(t, "/api/dashboard?date_debut=01/01/2021")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, httpx.ProblemContentType, resp.Header.Get("Content-Type"))
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal([]byte(body), &problem))
	assert.Equal(t, "Validation Failed", problem.Title)
}

func TestDomainFailureRendersBlockingError(t *testing.T) {
	h := newHarness(t, Options{})
	h.backend.fail("/filters/valeurs", http.StatusInternalServerError)

	resp, body := h.get(t, ui.DashboardPath)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Impossible de charger le tableau de bord")
	assert.Contains(t, body, "loading filter values failed")
	assert.Equal(t, 0, h.sessions.Len(), "failed sessions are not retained")

	resp, _ = h.get(t, "/api/dashboard")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	h.backend.fail("/filters/valeurs", 0)
	resp, _ = h.get(t, ui.DashboardPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "a reload starts a fresh session")
}

func TestRefreshFailureKeepsLastGoodData(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath)
	h.backend.fail("/kpi/geographique", http.StatusBadGateway)

	resp, body := h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&region=West")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Actualisation impossible")
	assert.Contains(t, body, "geo_performance")
	assert.Contains(t, body, "Les dernières données chargées restent affichées")

	_, raw := h.get(t, "/api/dashboard?date_debut=2021-01-01&date_fin=2022-12-31&region=West")
	var snap struct {
		State  string `json:"state"`
		Status string `json:"status"`
		Data   struct {
			GlobalKPI struct {
				Revenue float64 `json:"ca_total"`
			} `json:"global_kpi"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, "ready", snap.State)
	assert.Equal(t, "error", snap.Status)
	assert.InDelta(t, 2297200.86, snap.Data.GlobalKPI.Revenue, 0.001)
}

func TestAPIDashboardReturnsReadModel(t *testing.T) {
	h := newHarness(t, Options{})
	resp, raw := h.get(t, "/api/dashboard?onglet=geo")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap struct {
		State   string `json:"state"`
		Tab     string `json:"tab"`
		HasData bool   `json:"has_data"`
		Filters struct {
			DateStart string `json:"date_debut"`
		} `json:"filters"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, "ready", snap.State)
	assert.Equal(t, "geo", snap.Tab)
	assert.True(t, snap.HasData)
	assert.Equal(t, "2021-01-01", snap.Filters.DateStart)
}

func TestFiltersEndpoint(t *testing.T) {
	h := newHarness(t, Options{})
	resp, raw := h.get(t, "/api/filters")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, `"plage_dates":{"min":"2021-01-01","max":"2022-12-31"}`)
	assert.Contains(t, raw, `"etats":["California","Texas"]`)
}

func TestCustomersEndpoint(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath+"?date_debut=2021-01-01&date_fin=2022-12-31&segment=Consumer")

	resp, raw := h.get(t, "/api/clients?limite=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, "Sean Miller")
	q := h.backend.last("/kpi/clients")
	assert.Equal(t, "5", q.Get("limite"))
	assert.Equal(t, "Consumer", q.Get("segment"))

	resp, _ = h.get(t, "/api/clients?limite=500")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h.backend.fail("/kpi/clients", http.StatusInternalServerError)
	resp, _ = h.get(t, "/api/clients")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestExportCSV(t *testing.T) {
	h := newHarness(t, Options{ExportPerMinute: 1})
	h.get(t, ui.DashboardPath)

	resp, body := h.get(t, ui.ExportPath+"?date_debut=2021-01-01&date_fin=2022-12-31&tri_par=ca&periode=mois&onglet=produits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "superstore-2021-01-01_2022-12-31.csv")
	assert.Contains(t, body, "Top Produits")
	assert.Contains(t, body, "Canon imageCLASS 2200 Advanced Copier")

	resp, _ = h.get(t, ui.ExportPath)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestReadiness(t *testing.T) {
	h := newHarness(t, Options{})
	resp, raw := h.get(t, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, raw, `"status":"ready"`)
	assert.Contains(t, raw, `"nb_lignes":9994`)

	h.backend.fail("/", http.StatusServiceUnavailable)
	resp, _ = h.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEventsStreamRefreshes(t *testing.T) {
	h := newHarness(t, Options{})
	h.get(t, ui.DashboardPath)

	resp, err := h.client.Get(h.server.URL + "/api/dashboard/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	go func() {
		r, err := h.client.Get(h.server.URL + "/api/dashboard?tri_par=quantite")
		if err == nil {
			_ = r.Body.Close()
		}
	}()

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}
	var evt dashboard.Event
	require.NoError(t, json.Unmarshal([]byte(data), &evt))
	assert.Equal(t, dashboard.StateReady, evt.State)
	assert.Equal(t, dashboard.StatusLoaded, evt.Status)
	assert.Equal(t, uint64(2), evt.Seq)
}
