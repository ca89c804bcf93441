package lab

import (
	"errors"
	"strings"

	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// Equipment is one instrument used in a procedure.
type Equipment struct {
	Name        string `validate:"required"`
	Role        string
	Process     string
	AssetNumber string
	Nickname    string
	Tips        []string
}

// SkipUnnamed drops equipment rows without a name.
func SkipUnnamed(_ int, rec *sheetrange.Record) (bool, error) {
	return !rec.Value("name").IsEmpty(), nil
}

// EquipmentFromRecord validates one equipment row.
func EquipmentFromRecord(region string, rec *sheetrange.Record) (Equipment, error) {
	e := Equipment{
		Name:        text(rec, "name"),
		Role:        text(rec, "equipment_role", "role", "equipmentrole"),
		Process:     text(rec, "process"),
		AssetNumber: text(rec, "asset_number"),
		Nickname:    text(rec, "nickname"),
		Tips:        splitList(text(rec, "tips")),
	}
	if err := check(region, rec.Row, e); err != nil {
		return Equipment{}, err
	}
	return e, nil
}

// EquipmentFromRecords converts every row, collecting failures instead of stopping.
func EquipmentFromRecords(region string, records []*sheetrange.Record) ([]Equipment, error) {
	var out []Equipment
	var errs []error
	for _, rec := range records {
		e, err := EquipmentFromRecord(region, rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}

// Record flattens e back into a writable row.
func (e Equipment) Record() *sheetrange.Record {
	rec := sheetrange.NewRecord()
	rec.Set("role", sheetrange.Of(e.Role))
	rec.Set("name", sheetrange.String(e.Name))
	rec.Set("asset_number", sheetrange.Of(e.AssetNumber))
	rec.Set("nickname", sheetrange.Of(e.Nickname))
	rec.Set("process", sheetrange.Of(e.Process))
	rec.Set("tips", sheetrange.Of(strings.Join(e.Tips, "; ")))
	return rec
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
