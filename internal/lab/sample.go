package lab

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// Plate rows A-H map to 1-8.
var plateRows = "ABCDEFGH"

// RankField numbers samples in submission order; written tables align on it.
const RankField = "submission_rank"

// Sample is one row of a sample list or a procedure plate.
type Sample struct {
	SampleID   string `validate:"required"`
	SampleType string
	Row        int `validate:"gte=0,lte=8"`
	Column     int `validate:"gte=0,lte=12"`
	Rank       int `validate:"gte=1"`
	// Extra keeps the columns the lab adds beyond the known ones.
	Extra *sheetrange.Record
}

var sampleKeys = []string{"sample_id", "submitter_id", "sample_type", "row", "column", "well", RankField}

// Well returns the plate position such as "B7", or "" when unplaced.
func (s Sample) Well() string {
	if s.Row < 1 || s.Row > len(plateRows) || s.Column < 1 {
		return ""
	}
	return fmt.Sprintf("%c%d", plateRows[s.Row-1], s.Column)
}

// NormalizeSampleRow converts a plate row letter to its number and numbers the row
// in submission order when the sheet does not.
func NormalizeSampleRow(index int, rec *sheetrange.Record) (bool, error) {
	if v := rec.Value("row"); v.Kind == sheetrange.KindString {
		letter := strings.ToUpper(strings.TrimSpace(v.Str))
		if len(letter) == 1 {
			if i := strings.Index(plateRows, letter); i >= 0 {
				rec.Set("row", sheetrange.Number(float64(i+1)))
			}
		}
	}
	if rec.Value(RankField).IsEmpty() {
		rec.Set(RankField, sheetrange.Number(float64(index+1)))
	}
	return true, nil
}

// SampleFromRecord validates one sample row.
func SampleFromRecord(region string, rec *sheetrange.Record) (Sample, error) {
	s := Sample{
		SampleID:   text(rec, "sample_id", "submitter_id"),
		SampleType: text(rec, "sample_type"),
		Extra:      sheetrange.NewRecord(),
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"row", &s.Row},
		{"column", &s.Column},
		{RankField, &s.Rank},
	}
	for _, f := range ints {
		v := rec.Value(f.key)
		if v.IsEmpty() {
			continue
		}
		n, ok := v.Int()
		if !ok {
			return Sample{}, &ConversionError{Region: region, Row: rec.Row, Field: f.key, Err: fmt.Errorf("%q is not a whole number", v.String())}
		}
		*f.dst = n
	}
	for _, k := range rec.Keys() {
		if !slices.Contains(sampleKeys, k) {
			s.Extra.Set(k, rec.Value(k))
		}
	}
	if err := check(region, rec.Row, s); err != nil {
		return Sample{}, err
	}
	return s, nil
}

// SamplesFromRecords skips rows without a sample id, which includes the empty
// placeholders of a padded plate.
func SamplesFromRecords(region string, records []*sheetrange.Record) ([]Sample, error) {
	var out []Sample
	var errs []error
	for _, rec := range records {
		if first(rec, "sample_id", "submitter_id").IsEmpty() {
			continue
		}
		s, err := SampleFromRecord(region, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

// Record flattens s back into a writable row.
func (s Sample) Record() *sheetrange.Record {
	rec := sheetrange.NewRecord()
	rec.Set(RankField, sheetrange.Number(float64(s.Rank)))
	rec.Set("sample_id", sheetrange.String(s.SampleID))
	rec.Set("sample_type", sheetrange.Of(s.SampleType))
	if s.Row > 0 {
		rec.Set("row", sheetrange.Number(float64(s.Row)))
	}
	if s.Column > 0 {
		rec.Set("column", sheetrange.Number(float64(s.Column)))
	}
	rec.Set("well", sheetrange.Of(s.Well()))
	for _, k := range s.Extra.Keys() {
		rec.Set(k, s.Extra.Value(k))
	}
	return rec
}

// SampleRecords flattens samples for a table writer.
func SampleRecords(samples []Sample) []*sheetrange.Record {
	out := make([]*sheetrange.Record, len(samples))
	for i, s := range samples {
		out[i] = s.Record()
	}
	return out
}
