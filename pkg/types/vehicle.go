package types

// Source identifies which upstream feed a record came from.
type Source string

const (
	// SourceCarris is the Carris GTFS-realtime protobuf feed.
	SourceCarris Source = "carris"
	// SourceMetropolitana is the Carris Metropolitana JSON REST feed.
	SourceMetropolitana Source = "metropolitana"
)

// RawRecord is one vehicle snapshot exactly as a feed adapter returned it:
// flattened upstream field names mapped to undecoded values. It only lives
// for the duration of one normalization pass.
type RawRecord map[string]any

// Status is the normalized vehicle status. Normalization guarantees every
// record carries one of the four values below, never a raw upstream code.
type Status string

const (
	StatusInTransit   Status = "In Transit"
	StatusApproaching Status = "Approaching"
	StatusStationed   Status = "Stationed"
	StatusUnknown     Status = "Unknown"
)

// Record is the unified vehicle record both feeds normalize into. Pointer
// fields may be absent; absence is propagated through the pipeline rather
// than treated as fatal. LineID is always set after normalization.
type Record struct {
	LineID    string
	RouteID   string
	StopID    string
	TripID    string
	TravelID  string
	PatternID string
	ShiftID   string
	VehicleID string

	Latitude  *float64
	Longitude *float64
	Speed     *float64
	Bearing   *float64
	Timestamp *int64

	Status Status

	// Populated by the reference-data join.
	ColorID  string
	Operator string

	// Populated by enrichment.
	District string
	Date     string
	Time     string
	Day      string
	Workday  bool

	Source Source
}

// Float64 returns a pointer to v. Convenience for building optional fields.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
