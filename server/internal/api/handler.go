package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/alerts"
	"github.com/vahanboard/vahanboard/server/internal/config"
	"github.com/vahanboard/vahanboard/server/internal/metrics"
	"github.com/vahanboard/vahanboard/server/internal/source"
	"github.com/vahanboard/vahanboard/server/internal/store"
)

// defaultCertTimeout bounds the TLS check made per source by GET /api/v1/sources.
const defaultCertTimeout = 5 * time.Second

var (
	errNoData        = errors.New("no data available")
	errUnknownSource = errors.New("unknown source")
)

// AlertLister returns the alerts to report. *alerts.Engine satisfies it.
type AlertLister interface {
	Active() []*alerts.Alert
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	// Alerts is nil when alerting is disabled.
	Alerts AlertLister

	// Sources lists the configured sources in configuration order. The first
	// one holding data is the default for requests without ?source=.
	Sources []config.Source

	Theme config.ThemeConfig

	// TopN is the default for GET /api/v1/manufacturers without ?n=.
	TopN int

	// CertTimeout bounds the certificate check of each source. The checks run
	// concurrently, so it also bounds GET /api/v1/sources. Defaults to 5s.
	CertTimeout time.Duration
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads datasets from the snapshot store and returns JSON responses.
type Handler struct {
	store  *store.Store
	opts   Options
	router *mux.Router
}

// New creates a Handler wired to the given snapshot store and registers all routes.
func New(st *store.Store, opts Options) *Handler {
	if opts.TopN <= 0 {
		opts.TopN = metrics.DefaultTopN
	}
	if opts.CertTimeout <= 0 {
		opts.CertTimeout = defaultCertTimeout
	}
	h := &Handler{
		store:  st,
		opts:   opts,
		router: mux.NewRouter(),
	}

	h.router.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/filters", h.withDataset(h.filters)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/records", h.withDataset(h.records)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/overview", h.withDataset(h.overview)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/growth", h.withDataset(h.growth)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/vehicle-types", h.withDataset(h.vehicleTypes)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/manufacturers", h.withDataset(h.manufacturers)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/diagnostics", h.withDataset(h.diagnostics)).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/alerts", h.alerts).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/sources", h.sources).Methods(http.MethodGet)
	h.router.HandleFunc("/api/v1/theme", h.theme).Methods(http.MethodGet)

	h.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Overview returns the unfiltered overview of the default dataset, used for
// WebSocket broadcasts. ok is false while no data is available.
func (h *Handler) Overview() (OverviewResponse, bool) {
	ds, err := h.dataset("")
	if err != nil {
		return OverviewResponse{}, false
	}
	return buildOverview(ds, ds.Records), true
}

// --- dataset selection ------------------------------------------------------

// dataset returns the live dataset of id, or of the default source when id
// is empty.
func (h *Handler) dataset(id string) (*types.Dataset, error) {
	if id != "" {
		if e, ok := h.store.Live(id); ok && len(e.Dataset.Records) > 0 {
			return e.Dataset, nil
		}
		if _, ok := h.store.Get(id); !ok && !h.configured(id) {
			return nil, errUnknownSource
		}
		return nil, errNoData
	}

	for _, sc := range h.opts.Sources {
		if e, ok := h.store.Live(sc.ID); ok && len(e.Dataset.Records) > 0 {
			return e.Dataset, nil
		}
	}
	for _, e := range h.store.List() {
		if len(e.Dataset.Records) > 0 {
			return e.Dataset, nil
		}
	}
	return nil, errNoData
}

func (h *Handler) configured(id string) bool {
	for _, sc := range h.opts.Sources {
		if sc.ID == id {
			return true
		}
	}
	return false
}

type datasetHandler func(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record)

// withDataset resolves the requested dataset and applies the shared filter
// parameters before calling next.
func (h *Handler) withDataset(next datasetHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ds, err := h.dataset(q.Get("source"))
		switch {
		case errors.Is(err, errUnknownSource):
			jsonErr(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			jsonErr(w, http.StatusServiceUnavailable, errNoData.Error())
			return
		}

		f, err := parseFilter(q, ds.Records)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
		next(w, r, ds, metrics.FilterRecords(ds.Records, f))
	}
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: data availability and counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	resp := HealthResponse{
		State:       "no_data",
		SourceCount: len(entries),
	}
	for _, e := range entries {
		resp.RecordCount += len(e.Dataset.Records)
	}
	if resp.RecordCount > 0 {
		resp.State = "ok"
	}
	if h.opts.Alerts != nil {
		for _, a := range h.opts.Alerts.Active() {
			if a.State == "firing" {
				resp.AlertCount++
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// filters returns GET /api/v1/filters: the value space of the whole dataset.
func (h *Handler) filters(w http.ResponseWriter, r *http.Request, ds *types.Dataset, _ []types.Record) {
	o := metrics.OptionsOf(ds.Records)
	jsonResp(w, http.StatusOK, FiltersResponse{
		SourceID:      ds.SourceID,
		MinDate:       o.MinDate.UTC().Format(types.DateLayout),
		MaxDate:       o.MaxDate.UTC().Format(types.DateLayout),
		VehicleTypes:  o.VehicleTypes,
		Manufacturers: o.Manufacturers,
	})
}

// records returns GET /api/v1/records: the filtered rows.
func (h *Handler) records(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	jsonResp(w, http.StatusOK, RecordsResponse{
		SourceID: ds.SourceID,
		Count:    len(filtered),
		Records:  toRecordRows(filtered),
	})
}

// overview returns GET /api/v1/overview: headline metrics and trend series.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	jsonResp(w, http.StatusOK, buildOverview(ds, filtered))
}

// growth returns GET /api/v1/growth: growth per (date, group_by).
func (h *Handler) growth(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	cols, err := parseGroupBy(r.URL.Query(), nil)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rows := metrics.ComputeGrowth(metrics.AggregateBy(filtered, cols), cols)
	jsonResp(w, http.StatusOK, GrowthResponse{
		SourceID: ds.SourceID,
		GroupBy:  columnNames(cols),
		Rows:     toGrowthRows(rows),
	})
}

// vehicleTypes returns GET /api/v1/vehicle-types: per-type growth and totals.
func (h *Handler) vehicleTypes(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	cols := []types.Column{types.ColVehicleType}
	agg := metrics.AggregateBy(filtered, cols)
	jsonResp(w, http.StatusOK, VehicleTypesResponse{
		SourceID: ds.SourceID,
		Totals:   labelTotals(filtered, types.ColVehicleType),
		Rows:     toGrowthRows(metrics.ComputeGrowth(agg, cols)),
	})
}

// manufacturers returns GET /api/v1/manufacturers: the top-N names and rows.
func (h *Handler) manufacturers(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	n, err := parseTopN(r.URL.Query(), h.opts.TopN)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	names := metrics.TopManufacturers(filtered, n)
	rows := metrics.Restrict(filtered, names)

	sums := make(map[string]int64, len(names))
	for _, rec := range rows {
		sums[rec.Manufacturer] += rec.Registrations
	}
	top := make([]LabelTotal, 0, len(names))
	for _, name := range names {
		top = append(top, LabelTotal{Name: name, Registrations: sums[name]})
	}

	jsonResp(w, http.StatusOK, ManufacturersResponse{
		SourceID: ds.SourceID,
		N:        n,
		Top:      top,
		Rows:     toRecordRows(rows),
	})
}

// diagnostics returns GET /api/v1/diagnostics: hints on undefined growth.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request, ds *types.Dataset, filtered []types.Record) {
	cols, err := parseGroupBy(r.URL.Query(), []types.Column{types.ColVehicleType, types.ColManufacturer})
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	hints := metrics.Diagnose(metrics.AggregateBy(filtered, cols), cols)
	if hints == nil {
		hints = []metrics.Hint{}
	}
	jsonResp(w, http.StatusOK, DiagnosticsResponse{SourceID: ds.SourceID, Hints: hints})
}

// alerts returns GET /api/v1/alerts: firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if h.opts.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.opts.Alerts.Active())
}

// sources returns GET /api/v1/sources: refresh state per configured source.
func (h *Handler) sources(w http.ResponseWriter, r *http.Request) {
	out := make([]SourceStatus, len(h.opts.Sources))
	for i, sc := range h.opts.Sources {
		out[i] = h.sourceStatus(sc)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.CertTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i, sc := range h.opts.Sources {
		wg.Add(1)
		go func(i int, sc config.Source) {
			defer wg.Done()
			out[i].Cert = source.CheckCert(ctx, sc)
		}(i, sc)
	}
	wg.Wait()

	jsonResp(w, http.StatusOK, out)
}

// sourceStatus reports the store state of one configured source.
func (h *Handler) sourceStatus(sc config.Source) SourceStatus {
	st := SourceStatus{ID: sc.ID, Type: sc.Type, State: "pending"}
	e, ok := h.store.Get(sc.ID)
	if !ok {
		return st
	}
	st.UpdatedAt = formatTime(e.UpdatedAt)
	st.LastError = e.LastError
	st.FailedAt = formatTime(e.FailedAt)
	st.Failures = e.Failures
	switch _, live := h.store.Live(sc.ID); {
	case e.LastError != "" && !e.FailedAt.Before(e.UpdatedAt):
		st.State = "error"
	case live:
		st.State = "ok"
	default:
		st.State = "stale"
	}
	if e.Dataset != nil {
		st.Records = len(e.Dataset.Records)
	}
	return st
}

// theme returns GET /api/v1/theme: the configured palette.
func (h *Handler) theme(w http.ResponseWriter, r *http.Request) {
	colors := h.opts.Theme.Colors
	if colors == nil {
		colors = map[string]string{}
	}
	jsonResp(w, http.StatusOK, ThemeResponse{Name: h.opts.Theme.Name, Colors: colors})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func buildOverview(ds *types.Dataset, records []types.Record) OverviewResponse {
	hl := metrics.HeadlineOf(records)
	return OverviewResponse{
		SourceID:  ds.SourceID,
		FetchedAt: formatTime(ds.FetchedAt),
		Total:     hl.Total,
		Periods:   hl.Periods,
		YoYGrowth: hl.YoYGrowth,
		QoQGrowth: hl.QoQGrowth,
		YoYTrend:  metrics.Trend(hl.YoYGrowth),
		QoQTrend:  metrics.Trend(hl.QoQGrowth),
		Series:    toPointRows(metrics.SumByDate(records)),
	}
}

// labelTotals sums registrations per value of col, largest first.
func labelTotals(records []types.Record, col types.Column) []LabelTotal {
	idx := make(map[string]int)
	var out []LabelTotal
	for _, r := range records {
		name := col.Value(r)
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, LabelTotal{Name: name})
		}
		out[i].Registrations += r.Registrations
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Registrations > out[j].Registrations })
	if out == nil {
		out = []LabelTotal{}
	}
	return out
}
