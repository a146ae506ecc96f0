package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/alerts"
	"github.com/vahanboard/vahanboard/server/internal/config"
	"github.com/vahanboard/vahanboard/server/internal/metrics"
	"github.com/vahanboard/vahanboard/server/internal/source"
	"github.com/vahanboard/vahanboard/server/internal/store"
)

// Target is one source to poll.
type Target struct {
	ID     string
	Source source.Source
}

// Evaluator receives the observation of every refreshed source.
// *alerts.Engine satisfies it.
type Evaluator interface {
	Evaluate(obs alerts.Observation)
}

// Runner fetches all targets once per interval.
type Runner struct {
	targets  []Target
	store    *store.Store
	alerts   Evaluator
	interval time.Duration

	// OnUpdate, if set, is called after every completed round.
	OnUpdate func()
}

// Targets builds a Target per configured source.
func Targets(srcs []config.Source) ([]Target, error) {
	out := make([]Target, 0, len(srcs))
	for _, sc := range srcs {
		s, err := source.New(sc)
		if err != nil {
			return nil, fmt.Errorf("refresh: source %q: %w", sc.ID, err)
		}
		out = append(out, Target{ID: sc.ID, Source: s})
	}
	return out, nil
}

// New creates a Runner. ev may be nil, in which case no alerts are evaluated.
func New(targets []Target, st *store.Store, ev Evaluator, interval time.Duration) *Runner {
	return &Runner{
		targets:  targets,
		store:    st,
		alerts:   ev,
		interval: interval,
	}
}

// Run schedules a refresh round every interval, starting immediately, and
// blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)

	slog.Info("refresh: scheduler starting",
		"interval", r.interval,
		"sources", len(r.targets),
	)

	_, err := scheduler.Every(r.interval).SingletonMode().Do(func() {
		r.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("refresh: schedule job: %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	slog.Info("refresh: scheduler stopped")
	return nil
}

// RunOnce fetches every target sequentially. A failed fetch is recorded and
// logged; it is not retried until the next round.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, t := range r.targets {
		if ctx.Err() != nil {
			return
		}
		r.refresh(ctx, t)
	}
	if r.OnUpdate != nil {
		r.OnUpdate()
	}
}

func (r *Runner) refresh(ctx context.Context, t Target) {
	res, err := t.Source.Fetch(ctx)
	if err == nil && res == nil {
		err = fmt.Errorf("source returned no result")
	}
	if err == nil {
		err = res.Err
	}
	if err != nil {
		slog.Warn("refresh: fetch failed", "source", t.ID, "err", err)
		r.store.Fail(t.ID, err)
		r.evaluateStored(t.ID)
		return
	}

	ds := res.Dataset()
	ds.SourceID = t.ID
	r.store.Put(ds)
	slog.Debug("refresh: dataset updated",
		"source", t.ID,
		"records", len(ds.Records),
	)
	r.evaluate(t.ID, ds.Records)
}

// evaluateStored evaluates alerts against whatever is still servable for id
// after a failed fetch.
func (r *Runner) evaluateStored(id string) {
	if e, ok := r.store.Live(id); ok {
		r.evaluate(id, e.Dataset.Records)
		return
	}
	r.evaluate(id, nil)
}

func (r *Runner) evaluate(id string, records []types.Record) {
	if r.alerts == nil {
		return
	}
	r.alerts.Evaluate(Observe(id, records))
}

// Observe summarises records into an alert observation.
func Observe(sourceID string, records []types.Record) alerts.Observation {
	if len(records) == 0 {
		return alerts.Observation{SourceID: sourceID, State: alerts.StateNoData}
	}
	h := metrics.HeadlineOf(records)
	return alerts.Observation{
		SourceID:    sourceID,
		State:       alerts.StateOK,
		RecordCount: len(records),
		Total:       h.Total,
		YoYGrowth:   h.YoYGrowth,
		QoQGrowth:   h.QoQGrowth,
	}
}
