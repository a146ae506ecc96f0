package source

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/vahanboard/vahanboard/pkg/types"
	"github.com/vahanboard/vahanboard/server/internal/config"
)

// Placeholder data shape: one row per quarter from Q1 2020 to Q4 2023.
const (
	stubQuarters = 16
	stubMinRegs  = 10000
	stubMaxRegs  = 50000
)

var (
	stubStart        = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	stubVehicleTypes = []string{"2W", "3W", "4W"}

	// Repeated names are intentional: they weight the draw the same way the
	// portal's category listing does.
	stubManufacturers = []string{
		"Hero", "Honda", "Bajaj", "TVS", "Royal Enfield",
		"Bajaj", "Mahindra", "Piaggio", "TVS",
		"Maruti", "Hyundai", "Tata", "Mahindra", "Kia",
	}
)

// stubSource generates random placeholder registrations.
type stubSource struct {
	src config.Source

	mu  sync.Mutex
	rng *rand.Rand
}

func newStub(src config.Source) *stubSource {
	seed := src.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &stubSource{src: src, rng: rand.New(rand.NewSource(seed))}
}

// Fetch returns one freshly generated record per quarter.
func (s *stubSource) Fetch(_ context.Context) (*Result, error) {
	res := newResult(s.src.ID, "stub")
	res.Records = s.generate()
	return res, nil
}

func (s *stubSource) generate() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Record, stubQuarters)
	for i := range out {
		out[i] = types.Record{
			Date:          types.QuarterEnd(stubStart.AddDate(0, 3*i, 0)),
			VehicleType:   stubVehicleTypes[s.rng.Intn(len(stubVehicleTypes))],
			Manufacturer:  stubManufacturers[s.rng.Intn(len(stubManufacturers))],
			Registrations: stubMinRegs + s.rng.Int63n(stubMaxRegs-stubMinRegs),
		}
	}
	return out
}
