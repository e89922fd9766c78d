package dashboardhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/superstore-bi/dashboard/internal/dashboard"
	"github.com/superstore-bi/dashboard/internal/dashboard/export"
	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
	"github.com/superstore-bi/dashboard/internal/kpi"
	"github.com/superstore-bi/dashboard/internal/kpi/client"
	"github.com/superstore-bi/dashboard/internal/platform/httpx"
	"github.com/superstore-bi/dashboard/internal/view"
)

// SessionCookie carries the dashboard session id.
const SessionCookie = "dashboard_session"

const (
	defaultWaitTimeout = 12 * time.Second
	readyTimeout       = 3 * time.Second
	pageTitle          = "Superstore BI"
)

// Backend is the part of the KPI API served outside the refresh batch.
type Backend interface {
	FetchAPIInfo(ctx context.Context) (kpi.APIInfo, error)
	FetchCustomerAnalysis(ctx context.Context, limit int, filters kpi.FilterSet) (kpi.CustomerAnalysis, error)
}

// Options tunes the handler.
type Options struct {
	AppEnv        string
	SecureCookies bool
	// ExportPerMinute caps CSV exports per session or client IP.
	ExportPerMinute int
	// WaitTimeout bounds how long a request waits for its refresh batch
	// before rendering the current snapshot.
	WaitTimeout time.Duration
}

// Handler serves the dashboard page, its JSON read model and exports.
type Handler struct {
	logger    *slog.Logger
	sessions  *dashboard.Sessions
	backend   Backend
	templates *view.Engine
	builder   *ui.Builder
	opts      Options
	csvPool   sync.Pool
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, sessions *dashboard.Sessions, backend Backend, templates *view.Engine, builder *ui.Builder, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = defaultWaitTimeout
	}
	if opts.ExportPerMinute <= 0 {
		opts.ExportPerMinute = 10
	}
	h := &Handler{
		logger:    logger,
		sessions:  sessions,
		backend:   backend,
		templates: templates,
		builder:   builder,
		opts:      opts,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type errorPage struct {
	Heading   string
	Message   string
	RetryHref string
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ui.DashboardPath, http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.resolve(w, r, true)
	if err != nil {
		h.respondPageError(w, r, err)
		return
	}
	if snap.State == dashboard.StateFailed {
		h.renderUnavailable(w, r, snap.Err)
		return
	}

	page, err := h.builder.Build(snap)
	if err != nil {
		h.handleServerError(w, "build dashboard", err)
		return
	}
	data := view.TemplateData{
		Title:       pageTitle,
		CurrentPath: r.URL.Path,
		AppEnv:      h.opts.AppEnv,
		Data:        page,
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.handleServerError(w, "render dashboard", err)
	}
}

func (h *Handler) handleAPI(w http.ResponseWriter, r *http.Request) {
	snap, err := h.resolve(w, r, false)
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	if snap.State == dashboard.StateFailed {
		h.respondAPIError(w, r, snap.Err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) handleFilters(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(w, r)
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess.Orchestrator.Snapshot().Domain)
}

func (h *Handler) handleCustomers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	sess, err := h.session(w, r)
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	analysis, err := h.backend.FetchCustomerAnalysis(r.Context(), limit, sess.Orchestrator.Snapshot().Filters)
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(w, r)
	if err != nil {
		h.respondAPIError(w, r, err)
		return
	}
	events, unsubscribe := sess.Orchestrator.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	// The stream outlives the server write timeout; the request timeout
	// still ends it and the browser reconnects.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logError("stream events", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logError("encode event", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: refresh\nid: %d\ndata: %s\n\n", evt.Seq, payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	snap, err := h.resolve(w, r, false)
	if err != nil {
		h.respondPlainError(w, r, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteSnapshotCSV(buf, snap); err != nil {
		if errors.Is(err, export.ErrNoData) {
			http.Error(w, "Aucune donnée à exporter", http.StatusServiceUnavailable)
			return
		}
		h.handleServerError(w, "write snapshot csv", err)
		return
	}

	filename := fmt.Sprintf("superstore-%s_%s.csv", orAll(snap.Filters.DateStart), orAll(snap.Filters.DateEnd))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

type readiness struct {
	Status   string      `json:"status"`
	Backend  kpi.APIInfo `json:"backend"`
	Sessions int         `json:"sessions"`
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	info, err := h.backend.FetchAPIInfo(ctx)
	if err != nil {
		h.logError("readiness probe", err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Backend Unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, readiness{Status: "ready", Backend: info, Sessions: h.sessions.Len()})
}

// session resolves the caller's session and (re)issues the cookie when the
// id changed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (dashboard.Session, error) {
	var id string
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}
	sess, err := h.sessions.Acquire(r.Context(), id)
	if sess.ID != "" && sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.opts.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, err
}

// resolve applies the request's selections to the session and waits for the
// batch carrying them. A request without any query parameter reloads the
// dashboard when reloadWhenBare is set, and otherwise reads the current
// selections. When the wait times out the current snapshot is returned.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, reloadWhenBare bool) (dashboard.Snapshot, error) {
	sess, err := h.session(w, r)
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	orch := sess.Orchestrator
	q := r.URL.Query()

	var seq uint64
	switch {
	case isReload(q) && sess.Created:
		seq = sess.FirstSeq
	case isReload(q) && reloadWhenBare:
		seq, err = orch.Reload(r.Context())
	case isReload(q):
		seq = orch.Snapshot().Seq
	default:
		params, perr := parseParams(q, orch.Snapshot().Params())
		if perr != nil {
			return dashboard.Snapshot{}, perr
		}
		seq, err = orch.Apply(r.Context(), params)
	}
	if err != nil {
		return dashboard.Snapshot{}, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.WaitTimeout)
	defer cancel()
	if err := orch.Wait(ctx, seq); err != nil {
		if r.Context().Err() != nil {
			return dashboard.Snapshot{}, r.Context().Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return dashboard.Snapshot{}, err
		}
		h.logger.Warn("refresh still running, serving current snapshot",
			slog.String("session", sess.ID), slog.Uint64("seq", seq))
	}
	return orch.Snapshot(), nil
}

// classify maps dashboard and client errors onto response classes.
func classify(err error) error {
	var domainErr *dashboard.DomainLoadError
	var reqErr *client.RequestError
	switch {
	case errors.Is(err, dashboard.ErrInvalidParams), client.IsKind(err, client.KindInvalid):
		return httpx.Classified(httpx.ErrValidation, err)
	case errors.As(err, &domainErr), errors.Is(err, dashboard.ErrNotReady), errors.Is(err, dashboard.ErrClosed):
		return httpx.Classified(httpx.ErrUnavailable, err)
	case errors.As(err, &reqErr):
		return httpx.Classified(httpx.ErrUpstream, err)
	}
	return err
}

func (h *Handler) respondPageError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		return
	}
	classified := classify(err)
	switch httpx.Status(classified) {
	case http.StatusBadRequest:
		http.Error(w, "Paramètre invalide : "+err.Error(), http.StatusBadRequest)
	case http.StatusServiceUnavailable:
		h.renderUnavailable(w, r, err)
	default:
		h.handleServerError(w, "load dashboard", err)
	}
}

func (h *Handler) respondAPIError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		return
	}
	classified := classify(err)
	if httpx.Status(classified) >= http.StatusInternalServerError {
		h.logError("dashboard api", err)
	}
	httpx.RespondError(w, classified)
}

func (h *Handler) respondPlainError(w http.ResponseWriter, r *http.Request, err error) {
	if clientGone(r, err) {
		return
	}
	status := httpx.Status(classify(err))
	if status >= http.StatusInternalServerError {
		h.logError("dashboard export", err)
	}
	msg := http.StatusText(status)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	http.Error(w, msg, status)
}

func (h *Handler) renderUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.logError("dashboard unavailable", err)
	message := "Le service de données est indisponible."
	if err != nil {
		message = err.Error()
	}
	data := view.TemplateData{
		Title:       pageTitle,
		CurrentPath: r.URL.Path,
		AppEnv:      h.opts.AppEnv,
		Data: errorPage{
			Heading:   "Impossible de charger le tableau de bord",
			Message:   message,
			RetryHref: ui.DashboardPath,
		},
	}
	if rerr := h.templates.RenderStatus(w, http.StatusServiceUnavailable, "pages/error.html", data); rerr != nil {
		h.logError("render error page", rerr)
		http.Error(w, message, http.StatusServiceUnavailable)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}

func clientGone(r *http.Request, err error) bool {
	return errors.Is(err, context.Canceled) && r.Context().Err() != nil
}

func orAll(date string) string {
	if date == "" {
		return "all"
	}
	return date
}

func sessionKey(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}
