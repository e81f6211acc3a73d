package store

import (
	"sort"
	"sync"

	"github.com/oraclespainpresales/chatboteventhandler/pkg/domain"
)

// Store holds one zone's telemetry tables in memory for the duration of
// the current race. Writers append whole batches; readers get aggregates
// computed on demand. A RACING signal wipes everything.
//
// One goroutine writes (the zone's subscription loop), any number read
// (status requests). The RWMutex makes a batch append all-or-nothing from
// a reader's point of view.
type Store struct {
	mu       sync.RWMutex
	speed    []domain.SpeedSample
	lap      []domain.LapSample
	offtrack []domain.OfftrackEvent
}

func New() *Store {
	return &Store{}
}

// AppendSpeed appends a batch of speed samples. Empty batch is a no-op.
func (s *Store) AppendSpeed(rows []domain.SpeedSample) {
	if len(rows) == 0 {
		return
	}
	s.mu.Lock()
	s.speed = append(s.speed, rows...)
	s.mu.Unlock()
}

// AppendLaps appends a batch of lap samples. Empty batch is a no-op.
func (s *Store) AppendLaps(rows []domain.LapSample) {
	if len(rows) == 0 {
		return
	}
	s.mu.Lock()
	s.lap = append(s.lap, rows...)
	s.mu.Unlock()
}

// AppendOfftracks appends a batch of offtrack events. Empty batch is a no-op.
func (s *Store) AppendOfftracks(rows []domain.OfftrackEvent) {
	if len(rows) == 0 {
		return
	}
	s.mu.Lock()
	s.offtrack = append(s.offtrack, rows...)
	s.mu.Unlock()
}

// Reset clears all three tables. Idempotent.
func (s *Store) Reset() {
	s.mu.Lock()
	s.speed = nil
	s.lap = nil
	s.offtrack = nil
	s.mu.Unlock()
}

// SpeedAggregates returns max/min/mean speed per car, sorted by car name.
// Cars with no samples are absent, never zero-valued.
func (s *Store) SpeedAggregates() []domain.SpeedAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		max, min, sum float64
		n             int
	}
	byCar := map[string]*acc{}
	for _, r := range s.speed {
		a, ok := byCar[r.Car]
		if !ok {
			byCar[r.Car] = &acc{max: r.Speed, min: r.Speed, sum: r.Speed, n: 1}
			continue
		}
		if r.Speed > a.max {
			a.max = r.Speed
		}
		if r.Speed < a.min {
			a.min = r.Speed
		}
		a.sum += r.Speed
		a.n++
	}

	out := make([]domain.SpeedAggregate, 0, len(byCar))
	for car, a := range byCar {
		out = append(out, domain.SpeedAggregate{
			Car: car,
			Max: a.max,
			Min: a.min,
			Avg: a.sum / float64(a.n),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Car < out[j].Car })

	return out
}

// LapAggregates returns the fastest lap time per car, sorted by car name.
func (s *Store) LapAggregates() []domain.LapAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCar := map[string]float64{}
	for _, r := range s.lap {
		best, ok := byCar[r.Car]
		if !ok || r.LapTime < best {
			byCar[r.Car] = r.LapTime
		}
	}

	out := make([]domain.LapAggregate, 0, len(byCar))
	for car, best := range byCar {
		out = append(out, domain.LapAggregate{Car: car, Fastest: best})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Car < out[j].Car })

	return out
}

// Offtracks returns a copy of the offtrack table ordered by timestamp,
// lap, car. The order is for stable display only.
func (s *Store) Offtracks() []domain.OfftrackEvent {
	s.mu.RLock()
	out := make([]domain.OfftrackEvent, len(s.offtrack))
	copy(out, s.offtrack)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.Lap != b.Lap {
			return a.Lap < b.Lap
		}
		return a.Car < b.Car
	})

	return out
}
