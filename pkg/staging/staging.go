// Package staging writes the reconciled, enriched snapshot as a columnar
// CSV checkpoint before persistence. The file is a durable debugging
// artifact, not a storage layer.
package staging

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"carris2pg/pkg/types"
)

var header = []string{
	"Line_ID", "Color_ID", "Operator", "Current_Status",
	"Latitude", "Longitude", "Speed", "Stop_ID", "District",
	"Travel_ID", "Date", "Time", "Day", "Workday",
}

// Export writes the snapshot to path, replacing any previous checkpoint.
func Export(path string, records []types.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	if err := Write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write emits the snapshot as CSV, one row per record in input order.
// Absent numeric fields are written as empty cells.
func Write(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write staging header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.LineID,
			rec.ColorID,
			rec.Operator,
			string(rec.Status),
			formatFloat(rec.Latitude),
			formatFloat(rec.Longitude),
			formatFloat(rec.Speed),
			rec.StopID,
			rec.District,
			rec.TravelID,
			rec.Date,
			rec.Time,
			rec.Day,
			strconv.FormatBool(rec.Workday),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write staging row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f *float64) string {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 6, 64)
}
