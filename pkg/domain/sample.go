package domain

// Row types for the three per-zone tables. Rows are immutable once
// appended; the only delete is a whole-store reset on race start.

type SpeedSample struct {
	Car   string
	Race  int64
	Lap   int64
	Speed float64
}

type LapSample struct {
	Car     string
	Race    int64
	Lap     int64
	LapTime float64 // milliseconds
}

type OfftrackEvent struct {
	Timestamp float64 `json:"timestamp"` // milliseconds since epoch
	Car       string  `json:"car"`
	Race      int64   `json:"-"` // kept on the row, not exposed in status output
	Lap       int64   `json:"lap"`
	Track     int64   `json:"track"`
}

// SpeedAggregate is one car's speed statistics over the current race.
type SpeedAggregate struct {
	Car string  `json:"car"`
	Max float64 `json:"maxspeed"`
	Min float64 `json:"minspeed"`
	Avg float64 `json:"avgspeed"`
}

// LapAggregate is one car's fastest lap over the current race.
type LapAggregate struct {
	Car     string  `json:"car"`
	Fastest float64 `json:"fastesttime"`
}
