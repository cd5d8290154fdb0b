package sink

import (
	"math"
	"strconv"
	"strings"

	"carris2pg/pkg/types"
)

// Row is one fully coerced Bus_Status row, matching the table's strict
// column types.
type Row struct {
	LineID    int
	Status    string
	Latitude  float64
	Longitude float64
	Speed     float64
	StopID    int
	District  string
	TravelID  string
	Date      string
	Time      string
	Day       int
	Workday   int
}

// Coerce casts a record into the strict column types. Malformed values fall
// back to a type-appropriate default instead of failing the record: numeric
// identifiers that do not parse become 0, absent floats become 0.0, and the
// weekday name coerces through a numeric parse, so it too defaults to 0.
func Coerce(rec types.Record) Row {
	district := rec.District
	if district == "" {
		district = "Unknown"
	}
	return Row{
		LineID:    coerceInt(rec.LineID),
		Status:    string(rec.Status),
		Latitude:  coerceFloat(rec.Latitude),
		Longitude: coerceFloat(rec.Longitude),
		Speed:     coerceFloat(rec.Speed),
		StopID:    coerceInt(rec.StopID),
		District:  district,
		TravelID:  rec.TravelID,
		Date:      rec.Date,
		Time:      rec.Time,
		Day:       coerceInt(rec.Day),
		Workday:   coerceBool(rec.Workday),
	}
}

func coerceInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func coerceFloat(f *float64) float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return 0
	}
	return *f
}

func coerceBool(b bool) int {
	if b {
		return 1
	}
	return 0
}
