package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
)

func TestDetectHeaderRow(t *testing.T) {
	tests := []struct {
		name     string
		rows     [][]string
		expected int
	}{
		{
			name: "Title above header",
			rows: [][]string{
				{"Plate Report"},
				{},
				{"Sample", "Target", "Ct"},
				{"S1", "N1", "24.5"},
			},
			expected: 2,
		},
		{
			name: "Widest text row wins",
			rows: [][]string{
				{"Run", "7"},
				{"Sample", "Target", "Ct", "Well"},
				{"S1", "N1", "24.5", "A1"},
			},
			expected: 1,
		},
		{
			name: "Numbers only",
			rows: [][]string{
				{"1", "2", "3"},
				{"4", "5", "6"},
			},
			expected: -1,
		},
		{
			name:     "Empty",
			rows:     nil,
			expected: -1,
		},
		{
			name:     "Header beyond search limit",
			rows:     append(make([][]string, RowDetectionLimit*2), []string{"Sample", "Target"}),
			expected: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectHeaderRow(tt.rows)
			if got != tt.expected {
				t.Errorf("DetectHeaderRow() = %d; want %d", got, tt.expected)
			}
		})
	}
}

func TestContainsLetters(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Ct", true},
		{"24.5", false},
		{"A1", true},
		{"--", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := containsLetters(tt.input); got != tt.expected {
				t.Errorf("containsLetters(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}

// pcrWorkbook saves a small instrument export and returns its path.
func pcrWorkbook(t *testing.T) string {
	t.Helper()
	wb := sheetrange.NewWorkbook()
	ws, err := wb.EnsureSheet("Results")
	if err != nil {
		t.Fatal(err)
	}
	cells := map[[2]int]any{
		{1, 1}: "Run Name:", {1, 2}: "run-7",
		{2, 1}: "Operator:", {2, 2}: "jdoe",
		{25, 1}: "Sample", {25, 2}: "Target", {25, 3}: "Ct",
		{26, 1}: "S1", {26, 2}: "N1", {26, 3}: 24.5,
		{27, 1}: "S1", {27, 2}: "N2", {27, 3}: "Undetermined",
		{28, 1}: "S2", {28, 2}: "N1", {28, 3}: 30.1,
	}
	for pos, v := range cells {
		if err := ws.SetCell(pos[0], pos[1], sheetrange.Of(v)); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "pcr.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	wb.Close()
	return path
}

func pcrRegions(t *testing.T, names ...string) []layout.Region {
	t.Helper()
	regions, err := layout.Defaults().Select(names...)
	if err != nil {
		t.Fatal(err)
	}
	return regions
}

func TestParseRegions(t *testing.T) {
	path := pcrWorkbook(t)
	regions := pcrRegions(t, layout.PCRInfo, layout.PCRSamples, layout.ClientInfo)

	progress := make(chan float64, len(regions))
	summary, err := ParseRegions(path, regions, progress, nil)
	if err != nil {
		t.Fatalf("ParseRegions failed: %v", err)
	}
	close(progress)

	if len(summary.Regions) != 3 {
		t.Fatalf("Expected 3 region results, got %d", len(summary.Regions))
	}
	if summary.Regions[0].Result.Len() != 2 {
		t.Errorf("Expected 2 info pairs, got %d", summary.Regions[0].Result.Len())
	}
	if n := len(summary.Regions[1].Result.Groups); n != 2 {
		t.Errorf("Expected 2 sample groups, got %d", n)
	}
	if summary.RowsParsed != 5 {
		t.Errorf("Expected 5 rows parsed, got %d", summary.RowsParsed)
	}

	failed := summary.Failed()
	if len(failed) != 1 || failed[0].Name != layout.ClientInfo {
		t.Fatalf("Expected client_info to fail, got %v", failed)
	}
	if !errors.Is(failed[0].Err, sheetrange.ErrSheetNotFound) {
		t.Errorf("Expected ErrSheetNotFound, got %v", failed[0].Err)
	}

	var last float64
	for p := range progress {
		last = p
	}
	if last != 1 {
		t.Errorf("Expected final progress 1, got %v", last)
	}
}

func TestParseRegions_MissingFile(t *testing.T) {
	_, err := ParseRegions(filepath.Join(t.TempDir(), "nope.xlsx"), pcrRegions(t, layout.PCRInfo), nil, nil)
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	_, err = ParseRegions("x.xlsx", nil, nil, nil)
	if err == nil {
		t.Fatal("Expected an error for an empty region list")
	}
}

func TestCopyRegions(t *testing.T) {
	src := pcrWorkbook(t)
	dst := filepath.Join(t.TempDir(), "copy.xlsx")
	regions := pcrRegions(t, layout.PCRInfo, layout.PCRSamples)

	summary, err := CopyRegions(src, dst, regions, nil)
	if err != nil {
		t.Fatalf("CopyRegions failed: %v", err)
	}
	if summary.OutputFile != dst {
		t.Errorf("Expected output file %s, got %s", dst, summary.OutputFile)
	}

	again, err := ParseRegions(dst, regions, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range again.Regions {
		if r.Err != nil {
			t.Fatalf("Region %s: %v", r.Name, r.Err)
		}
		want := summary.Regions[i].Result
		if r.Result.Kind == layout.KeyValue {
			if !r.Result.Record.Equal(want.Record) {
				t.Errorf("Region %s: fields differ after copy", r.Name)
			}
			continue
		}
		if len(r.Result.Records) != len(want.Records) {
			t.Fatalf("Region %s: expected %d records, got %d", r.Name, len(want.Records), len(r.Result.Records))
		}
		for j := range want.Records {
			if !r.Result.Records[j].Equal(want.Records[j]) {
				t.Errorf("Region %s record %d differs after copy", r.Name, j)
			}
		}
	}
}

func TestCopyRegions_FailedRegionSavesNothing(t *testing.T) {
	src := pcrWorkbook(t)
	dst := filepath.Join(t.TempDir(), "copy.xlsx")

	_, err := CopyRegions(src, dst, pcrRegions(t, layout.PCRInfo, layout.ClientSamples), nil)
	if !errors.Is(err, sheetrange.ErrSheetNotFound) {
		t.Fatalf("Expected ErrSheetNotFound, got %v", err)
	}
	if err := sheetrange.ReadFile(dst, func(*sheetrange.Workbook) error { return nil }); err == nil {
		t.Error("Expected no output file to be written")
	}
}

func TestReadSheetData(t *testing.T) {
	wb := sheetrange.NewWorkbook()
	ws, err := wb.EnsureSheet("Plate")
	if err != nil {
		t.Fatal(err)
	}
	rows := [][]any{
		{"Extraction plate"},
		{},
		{"Well", "Sample", "Volume"},
		{"A1", "S1", 200},
		{"A2", "S2", 150},
	}
	for i, cells := range rows {
		for j, c := range cells {
			if err := ws.SetCell(i+1, j+1, sheetrange.Of(c)); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "plate.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	wb.Close()

	data, err := ReadSheetData(path, "Plate")
	if err != nil {
		t.Fatalf("ReadSheetData failed: %v", err)
	}
	if data.HeaderRow != 2 {
		t.Errorf("Expected header row index 2, got %d", data.HeaderRow)
	}
	if strings.Join(data.Headers, ",") != "Well,Sample,Volume" {
		t.Errorf("Unexpected headers %v", data.Headers)
	}
	if len(data.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(data.Rows))
	}

	if _, err := ReadSheetData(path, "Missing"); !errors.Is(err, sheetrange.ErrSheetNotFound) {
		t.Errorf("Expected ErrSheetNotFound, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	summary, err := ParseRegions(pcrWorkbook(t), pcrRegions(t, layout.PCRSamples, layout.PCRInfo), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, summary.Regions[0].Result); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "sample,target,ct" {
		t.Errorf("Unexpected header %v", records[0])
	}
	if records[2][2] != "Undetermined" {
		t.Errorf("Expected Undetermined, got %s", records[2][2])
	}

	buf.Reset()
	if err := WriteCSV(&buf, summary.Regions[1].Result); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "field,value\nrun_name,run-7\n") {
		t.Errorf("Unexpected key-value CSV %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	summary, err := ParseRegions(pcrWorkbook(t), pcrRegions(t, layout.PCRInfo, layout.PCRSamples, layout.ClientInfo), nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, summary); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Rows    int `json:"rows"`
		Regions []struct {
			Region  string           `json:"region"`
			Fields  map[string]any   `json:"fields"`
			Records []map[string]any `json:"records"`
			Error   string           `json:"error"`
		} `json:"regions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc.Rows != 5 || len(doc.Regions) != 3 {
		t.Fatalf("Unexpected document %+v", doc)
	}
	if doc.Regions[0].Fields["operator"] != "jdoe" {
		t.Errorf("Expected operator jdoe, got %v", doc.Regions[0].Fields["operator"])
	}
	if doc.Regions[1].Records[0]["ct"] != 24.5 {
		t.Errorf("Expected ct 24.5, got %v", doc.Regions[1].Records[0]["ct"])
	}
	if doc.Regions[2].Error == "" {
		t.Error("Expected an error for the missing sheet")
	}
}
