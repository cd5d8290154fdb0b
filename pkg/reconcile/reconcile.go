// Package reconcile merges the two normalized snapshots into one ordered
// collection and joins in the static line reference data.
package reconcile

import (
	"carris2pg/pkg/reference"
	"carris2pg/pkg/types"
)

// Merge concatenates the two snapshots with b appended after a, preserving
// each source's internal order. The unified record type already carries the
// union of both sources' columns, so no record is widened or dropped:
// len(Merge(a, b)) == len(a) + len(b) always holds.
func Merge(a, b []types.Record) []types.Record {
	merged := make([]types.Record, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return merged
}

// Join populates ColorID and Operator from the reference table by equality
// on LineID. It is a left join: lines with no reference entry get "Unknown"
// for both fields, and the row count never changes.
func Join(records []types.Record, table reference.Table) []types.Record {
	joined := make([]types.Record, len(records))
	for i, rec := range records {
		if info, ok := table[rec.LineID]; ok {
			rec.ColorID = info.ColorID
			rec.Operator = info.Operator
		} else {
			rec.ColorID = "Unknown"
			rec.Operator = "Unknown"
		}
		joined[i] = rec
	}
	return joined
}
