package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/config"
)

var csvHeader = []string{"date", "vehicle_type", "manufacturer", "registrations"}

// csvSource reads registrations from a local CSV file on every fetch.
type csvSource struct {
	src config.Source
}

// Fetch parses the CSV file at src.Path. Any malformed row fails the whole
// fetch so a half-read file is never served.
func (s *csvSource) Fetch(_ context.Context) (*Result, error) {
	res := newResult(s.src.ID, "csv")

	records, err := loadCSV(s.src.Path)
	if err != nil {
		res.Err = fmt.Errorf("csv fetch %q: %w", s.src.ID, err)
		return res, nil
	}
	res.Records = records
	return res, nil
}

func loadCSV(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("csv must have header and at least one data row: %w", ErrNoData)
	}
	if !validateHeader(rows[0]) {
		return nil, fmt.Errorf("csv header mismatch. Expected: %v, Got: %v", csvHeader, rows[0])
	}

	out := make([]types.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		r, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func validateHeader(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) != csvHeader[i] {
			return false
		}
	}
	return true
}

func parseRow(row []string) (types.Record, error) {
	d, err := time.Parse(types.DateLayout, strings.TrimSpace(row[0]))
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid date %q: %w", row[0], err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64)
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid registrations %q: %w", row[3], err)
	}
	if n < 0 {
		return types.Record{}, fmt.Errorf("negative registrations %d", n)
	}
	vt, mf := strings.TrimSpace(row[1]), strings.TrimSpace(row[2])
	if vt == "" || mf == "" {
		return types.Record{}, fmt.Errorf("vehicle_type and manufacturer are required")
	}
	return types.Record{
		Date:          types.QuarterEnd(d),
		VehicleType:   vt,
		Manufacturer:  mf,
		Registrations: n,
	}, nil
}
