package lab

import (
	"errors"
	"strings"
	"time"

	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// Reagent is one lot used by a procedure.
type Reagent struct {
	Role     string `validate:"required"`
	Name     string `validate:"required"`
	Lot      string `validate:"required"`
	Expiry   time.Time
	NoExpiry bool
	Comment  string
}

// SkipUnlotted drops reagent rows without a lot number.
func SkipUnlotted(_ int, rec *sheetrange.Record) (bool, error) {
	return !rec.Value("lot").IsEmpty(), nil
}

// ReagentFromRecord builds a reagent from a table row. Lots are upper-cased, a
// missing name falls back to the role, and an expiry of "NA", a blank cell or a 1970
// date means the reagent does not expire.
func ReagentFromRecord(region string, rec *sheetrange.Record) (Reagent, error) {
	r := Reagent{
		Role:    text(rec, "reagent_role", "role", "reagentrole"),
		Name:    text(rec, "name"),
		Lot:     strings.ToUpper(text(rec, "lot")),
		Comment: text(rec, "comment"),
	}
	if r.Name == "" {
		r.Name = r.Role
	}
	exp := first(rec, "expiry", "expiration")
	switch {
	case exp.IsEmpty(), strings.EqualFold(strings.TrimSpace(exp.String()), "NA"):
		r.NoExpiry = true
	default:
		t, err := toDate(exp)
		if err != nil {
			return Reagent{}, &ConversionError{Region: region, Row: rec.Row, Field: "expiry", Err: err}
		}
		if t.Year() == 1970 {
			r.NoExpiry = true
		} else {
			r.Expiry = t
		}
	}
	if err := check(region, rec.Row, r); err != nil {
		return Reagent{}, err
	}
	return r, nil
}

// ReagentsFromRecords converts every row it can and joins the failures.
func ReagentsFromRecords(region string, records []*sheetrange.Record) ([]Reagent, error) {
	var out []Reagent
	var errs []error
	for _, rec := range records {
		r, err := ReagentFromRecord(region, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errors.Join(errs...)
}

// Record flattens r back into a writable row; a missing expiry is written as NA.
func (r Reagent) Record() *sheetrange.Record {
	rec := sheetrange.NewRecord()
	rec.Set("role", sheetrange.String(r.Role))
	rec.Set("name", sheetrange.String(r.Name))
	rec.Set("lot", sheetrange.String(r.Lot))
	if r.NoExpiry || r.Expiry.IsZero() {
		rec.Set("expiry", sheetrange.String("NA"))
	} else {
		rec.Set("expiry", sheetrange.Date(r.Expiry))
	}
	rec.Set("comment", sheetrange.Of(r.Comment))
	return rec
}
