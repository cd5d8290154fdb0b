// Package reference loads the static line-color table joined into the live
// feeds. The table is read once at startup and read-only afterwards.
package reference

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineInfo is the static metadata for one line.
type LineInfo struct {
	ColorID  string
	Operator string
}

// Table maps a canonical line identifier to its static metadata.
type Table map[string]LineInfo

// Load reads the line-color CSV (LineID, Color_ID, Operator). Header names
// are matched after trimming whitespace; the exporter pads them.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open line colors: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses the line-color table from r.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read line colors header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	lineCol, ok := idx["LineID"]
	if !ok {
		lineCol, ok = idx["Line_ID"]
	}
	if !ok {
		return nil, fmt.Errorf("line colors table has no LineID column")
	}
	colorCol, hasColor := idx["Color_ID"]
	operatorCol, hasOperator := idx["Operator"]

	table := Table{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line colors row: %w", err)
		}
		line := strings.TrimSpace(row[lineCol])
		if line == "" {
			continue
		}
		info := LineInfo{}
		if hasColor && colorCol < len(row) {
			info.ColorID = strings.TrimSpace(row[colorCol])
		}
		if hasOperator && operatorCol < len(row) {
			info.Operator = strings.TrimSpace(row[operatorCol])
		}
		table[line] = info
	}
	return table, nil
}
