package reference

import (
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	csv := "LineID,Color_ID,Operator\n728,Red,Carris\n1000,Yellow,Carris Metropolitana\n"

	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("got %d entries, want 2", len(table))
	}
	if info := table["728"]; info.ColorID != "Red" || info.Operator != "Carris" {
		t.Errorf("table[728] = %+v, want {Red Carris}", info)
	}
}

func TestReadTrimsPaddedCells(t *testing.T) {
	csv := " LineID , Color_ID , Operator \n 728 , Red , Carris \n"

	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if info, ok := table["728"]; !ok || info.ColorID != "Red" {
		t.Errorf("table[728] = %+v, want {Red Carris}", info)
	}
}

func TestReadAcceptsLineIDAlias(t *testing.T) {
	csv := "Line_ID,Color_ID,Operator\n728,Red,Carris\n"

	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if _, ok := table["728"]; !ok {
		t.Error("Line_ID header alias not recognized")
	}
}

func TestReadMissingLineColumn(t *testing.T) {
	if _, err := Read(strings.NewReader("Color_ID,Operator\nRed,Carris\n")); err == nil {
		t.Error("Read() expected error for missing LineID column")
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	csv := "LineID,Color_ID,Operator\n,Red,Carris\n728,Red,Carris\n"

	table, err := Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(table) != 1 {
		t.Errorf("got %d entries, want 1", len(table))
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.csv"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
