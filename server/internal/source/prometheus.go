package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/config"
)

// Label names carried by every registration sample.
const (
	labelDate         = "date"
	labelVehicleType  = "vehicle_type"
	labelManufacturer = "manufacturer"
)

type promSource struct {
	src    config.Source
	client *http.Client
}

// Fetch reads a Prometheus text exposition and converts every sample of the
// configured metric family into a Record:
//
//	vahan_registrations{date="2023-03-31",vehicle_type="2W",manufacturer="Hero"} 41250
//
// Samples with a missing label, an unparseable date or a negative value are
// skipped and logged.
func (s *promSource) Fetch(ctx context.Context) (*Result, error) {
	res := newResult(s.src.ID, "prometheus")

	header := http.Header{}
	header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	body, err := get(ctx, s.client, s.src.Endpoint, header)
	if err != nil {
		res.Err = fmt.Errorf("prometheus fetch %q: %w", s.src.ID, err)
		slog.Warn("source: prometheus fetch failed", "source", s.src.ID, "err", err)
		return res, nil
	}

	mfs, err := parseMetrics(bytes.NewReader(body))
	if err != nil {
		res.Err = fmt.Errorf("prometheus fetch %q: %w", s.src.ID, err)
		return res, nil
	}

	records, skipped := recordsFromFamily(mfs[s.src.Metric])
	if skipped > 0 {
		slog.Warn("source: skipped malformed registration samples",
			"source", s.src.ID, "metric", s.src.Metric, "skipped", skipped)
	}
	if len(records) == 0 {
		res.Err = fmt.Errorf("prometheus fetch %q: no %s samples: %w", s.src.ID, s.src.Metric, ErrNoData)
		return res, nil
	}
	res.Records = records
	return res, nil
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// recordsFromFamily converts each sample of mf into a Record and reports how
// many samples were rejected.
func recordsFromFamily(mf *dto.MetricFamily) ([]types.Record, int) {
	if mf == nil {
		return nil, 0
	}
	var (
		out     []types.Record
		skipped int
	)
	for _, m := range mf.GetMetric() {
		labels := make(map[string]string, len(m.GetLabel()))
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}

		d, err := time.Parse(types.DateLayout, labels[labelDate])
		if err != nil || labels[labelVehicleType] == "" || labels[labelManufacturer] == "" {
			skipped++
			continue
		}
		v := sampleValue(m)
		if !isCount(v) {
			skipped++
			continue
		}
		out = append(out, types.Record{
			Date:          types.QuarterEnd(d),
			VehicleType:   labels[labelVehicleType],
			Manufacturer:  labels[labelManufacturer],
			Registrations: int64(v),
		})
	}
	return out, skipped
}

// isCount reports whether v is a non-negative whole number that fits in an
// int64. float64(math.MaxInt64) rounds up to 2^63, hence >=.
func isCount(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= 0 && v < math.MaxInt64 && v == math.Trunc(v)
}

// sampleValue returns the value of a counter, gauge or untyped sample.
func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	default:
		return -1
	}
}
