// Package enrich derives temporal fields from record timestamps and
// resolves coordinates to district names via reverse geocoding.
package enrich

import (
	"time"

	"carris2pg/pkg/types"
)

// Time splits the record's epoch timestamp, in UTC, into a date, a clock
// time, the full weekday name, and a Monday-to-Friday workday flag. A
// missing or non-positive timestamp leaves all four fields at their zero
// values. Pure function, no failure modes.
func Time(rec types.Record) types.Record {
	if rec.Timestamp == nil || *rec.Timestamp <= 0 {
		return rec
	}
	t := time.Unix(*rec.Timestamp, 0).UTC()
	rec.Date = t.Format("2006-01-02")
	rec.Time = t.Format("15:04:05")
	rec.Day = t.Weekday().String()
	rec.Workday = t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
	return rec
}

// TimeAll applies Time to every record, preserving order.
func TimeAll(records []types.Record) []types.Record {
	enriched := make([]types.Record, len(records))
	for i, rec := range records {
		enriched[i] = Time(rec)
	}
	return enriched
}
