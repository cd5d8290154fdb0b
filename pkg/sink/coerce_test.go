package sink

import (
	"math"
	"testing"

	"carris2pg/pkg/types"
)

func TestCoerceFullRecord(t *testing.T) {
	rec := types.Record{
		LineID:    "728",
		Status:    types.StatusInTransit,
		Latitude:  types.Float64(38.7369),
		Longitude: types.Float64(-9.1427),
		Speed:     types.Float64(6.4),
		StopID:    "060123",
		District:  "Alvalade",
		TravelID:  "blk-1",
		Date:      "2024-05-29",
		Time:      "16:26:40",
		Day:       "Wednesday",
		Workday:   true,
	}

	row := Coerce(rec)

	if row.LineID != 728 {
		t.Errorf("LineID = %d, want 728", row.LineID)
	}
	if row.Status != "In Transit" {
		t.Errorf("Status = %q, want In Transit", row.Status)
	}
	if row.StopID != 60123 {
		t.Errorf("StopID = %d, want 60123", row.StopID)
	}
	if row.Workday != 1 {
		t.Errorf("Workday = %d, want 1", row.Workday)
	}
	// weekday names are not numeric, the column is
	if row.Day != 0 {
		t.Errorf("Day = %d, want 0", row.Day)
	}
}

func TestCoerceMalformedValuesDefault(t *testing.T) {
	nan := math.NaN()
	rec := types.Record{
		LineID:  "Unknown",
		StopID:  "not-a-number",
		Speed:   &nan,
		Workday: false,
	}

	row := Coerce(rec)

	if row.LineID != 0 {
		t.Errorf("LineID = %d, want 0", row.LineID)
	}
	if row.StopID != 0 {
		t.Errorf("StopID = %d, want 0", row.StopID)
	}
	if row.Speed != 0 {
		t.Errorf("Speed = %v, want 0", row.Speed)
	}
	if row.Latitude != 0 || row.Longitude != 0 {
		t.Errorf("absent coordinates = (%v, %v), want (0, 0)", row.Latitude, row.Longitude)
	}
	if row.Workday != 0 {
		t.Errorf("Workday = %d, want 0", row.Workday)
	}
}

func TestCoerceEmptyDistrictDefaultsUnknown(t *testing.T) {
	if row := Coerce(types.Record{}); row.District != "Unknown" {
		t.Errorf("District = %q, want Unknown", row.District)
	}
	if row := Coerce(types.Record{District: "Invalid coordinates"}); row.District != "Invalid coordinates" {
		t.Errorf("District = %q, want Invalid coordinates", row.District)
	}
}
