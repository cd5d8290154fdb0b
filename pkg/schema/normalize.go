// Package schema maps each feed's raw field names and status encodings into
// the unified vehicle record.
package schema

import (
	"math"
	"strconv"
	"strings"

	"carris2pg/pkg/types"
)

// PlaceholderLineID is assigned when a feed yields no usable line
// identifier. Normalization never leaves LineID empty.
const PlaceholderLineID = "Unknown"

// Field renames, per source:
//
//	carris (GTFS-RT)    metropolitana (REST)   unified
//	entity_id           line_id (id fallback)  LineID
//	position_latitude   lat                    Latitude
//	position_longitude  lon                    Longitude
//	position_speed      speed                  Speed
//	position_bearing    bearing                Bearing
//	current_status      current_status         Status (via status map)
//	trip_route_id       route_id               RouteID
//	trip_trip_id        trip_id                TripID
//	stop_id             stop_id                StopID
//	                    block_id               TravelID
//	timestamp           timestamp              Timestamp
//
// The Carris line identifier embeds a longer composite code; only the
// trailing three characters are the human line number, so it is truncated.
// The Metropolitana line identifier is used as-is.

// Normalize converts one raw feed record into the unified shape. Records
// missing coordinates are retained with nil Latitude/Longitude, not dropped.
func Normalize(raw types.RawRecord, src types.Source) types.Record {
	rec := types.Record{
		Source:   src,
		Status:   types.StatusUnknown,
		District: "Unknown",
	}

	switch src {
	case types.SourceCarris:
		rec.LineID = canonicalLineID(asString(raw["entity_id"]))
		rec.Latitude = asFloat(raw["position_latitude"])
		rec.Longitude = asFloat(raw["position_longitude"])
		rec.Speed = asFloat(raw["position_speed"])
		rec.Bearing = asFloat(raw["position_bearing"])
		rec.RouteID = asString(raw["trip_route_id"])
		rec.TripID = asString(raw["trip_trip_id"])
		rec.StopID = asString(raw["stop_id"])
		rec.VehicleID = asString(raw["vehicle_id"])
		rec.Timestamp = asInt(raw["timestamp"])
		rec.Status = mapStatus(raw["current_status"])

	case types.SourceMetropolitana:
		rec.LineID = asString(raw["line_id"])
		if rec.LineID == "" {
			rec.LineID = asString(raw["id"])
		}
		rec.Latitude = asFloat(raw["lat"])
		rec.Longitude = asFloat(raw["lon"])
		rec.Speed = asFloat(raw["speed"])
		rec.Bearing = asFloat(raw["bearing"])
		rec.RouteID = asString(raw["route_id"])
		rec.TripID = asString(raw["trip_id"])
		rec.StopID = asString(raw["stop_id"])
		rec.TravelID = asString(raw["block_id"])
		rec.PatternID = asString(raw["pattern_id"])
		rec.ShiftID = asString(raw["shift_id"])
		rec.VehicleID = asString(raw["id"])
		rec.Timestamp = asInt(raw["timestamp"])
		rec.Status = mapStatus(raw["current_status"])
	}

	if rec.LineID == "" {
		rec.LineID = PlaceholderLineID
	}
	return rec
}

// All normalizes a whole snapshot, preserving input order.
func All(raws []types.RawRecord, src types.Source) []types.Record {
	records := make([]types.Record, len(raws))
	for i, raw := range raws {
		records[i] = Normalize(raw, src)
	}
	return records
}

// mapStatus resolves a raw status value to the unified enum. Numeric codes
// come from the protobuf feed (0 incoming, 1 stopped, 2 in transit), text
// values from the JSON feed. Anything else is Unknown.
func mapStatus(v any) types.Status {
	if code, ok := asStatusCode(v); ok {
		switch code {
		case 0:
			return types.StatusApproaching
		case 1:
			return types.StatusStationed
		case 2:
			return types.StatusInTransit
		}
		return types.StatusUnknown
	}

	switch text, _ := v.(string); strings.TrimSpace(text) {
	case "IN_TRANSIT_TO":
		return types.StatusInTransit
	case "INCOMING_AT":
		return types.StatusApproaching
	case "STOPPED_AT":
		return types.StatusStationed
	}
	return types.StatusUnknown
}

func asStatusCode(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// canonicalLineID keeps the last three characters of a Carris identifier.
func canonicalLineID(id string) string {
	runes := []rune(id)
	if len(runes) <= 3 {
		return id
	}
	return string(runes[len(runes)-3:])
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; identifiers are integral
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint32:
		return strconv.FormatUint(uint64(s), 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	}
	return ""
}

func asFloat(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func asInt(v any) *int64 {
	switch n := v.(type) {
	case int:
		return types.Int64(int64(n))
	case int32:
		return types.Int64(int64(n))
	case int64:
		return types.Int64(n)
	case uint32:
		return types.Int64(int64(n))
	case uint64:
		return types.Int64(int64(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return types.Int64(int64(n))
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil
		}
		return types.Int64(parsed)
	}
	return nil
}
