package extract

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"slices"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
	"github.com/nconklindev/labsheets/internal/types"
)

// Columns returns the keys of records in first-appearance order.
func Columns(records []*sheetrange.Record) []string {
	var cols []string
	for _, r := range records {
		for _, k := range r.Keys() {
			if !slices.Contains(cols, k) {
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// Grid renders a result as a header and rows of text. Key-value results become a
// two-column field/value grid.
func Grid(res layout.Result) ([]string, [][]string) {
	if res.Kind == layout.KeyValue {
		rows := make([][]string, len(res.Pairs))
		for i, p := range res.Pairs {
			rows[i] = []string{p.Key, p.Value.String()}
		}
		return []string{"field", "value"}, rows
	}
	cols := Columns(res.Records)
	rows := make([][]string, len(res.Records))
	for i, rec := range res.Records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = rec.Text(c)
		}
		rows[i] = row
	}
	return cols, rows
}

// WriteCSV writes one region result as CSV.
func WriteCSV(w io.Writer, res layout.Result) error {
	header, rows := Grid(res)
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

type regionJSON struct {
	Region  string               `json:"region"`
	Kind    string               `json:"kind,omitempty"`
	Fields  *sheetrange.Record   `json:"fields,omitempty"`
	Records []*sheetrange.Record `json:"records,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type summaryJSON struct {
	Input   string       `json:"input"`
	Rows    int          `json:"rows"`
	Regions []regionJSON `json:"regions"`
}

// WriteJSON writes the whole summary as one indented document. Field order inside
// records follows the sheet.
func WriteJSON(w io.Writer, summary *types.ParseSummary) error {
	doc := summaryJSON{Input: summary.InputFile, Rows: summary.RowsParsed, Regions: []regionJSON{}}
	for _, r := range summary.Regions {
		out := regionJSON{Region: r.Name, Kind: string(r.Result.Kind)}
		switch {
		case r.Err != nil:
			out.Error = r.Err.Error()
		case r.Result.Kind == layout.KeyValue:
			out.Fields = r.Result.Record
		default:
			out.Records = r.Result.Records
		}
		doc.Regions = append(doc.Regions, out)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
