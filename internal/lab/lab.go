// Package lab maps workbook regions to the lab's validated value objects and back.
//
// Converters never query or write a database; they hand typed values to whoever
// persists them. A conversion returns every object it could build together with a
// joined error describing the rows it could not, so callers choose whether to skip
// or abort.
package lab

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nconklindev/labsheets/internal/sheetrange"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

var ErrUnknownSubmissionType = errors.New("unknown submission type")

// ConversionError reports a row that could not become a domain object.
type ConversionError struct {
	Region string
	Row    int
	Field  string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s row %d: field %s: %v", e.Region, e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("%s row %d: %v", e.Region, e.Row, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// check runs struct validation and turns the first failure into a ConversionError.
func check(region string, row int, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConversionError{Region: region, Row: row, Field: fe.Field(), Err: fmt.Errorf("failed %q validation", fe.Tag())}
	}
	return &ConversionError{Region: region, Row: row, Err: err}
}

// first returns the first non-empty value among keys.
func first(rec *sheetrange.Record, keys ...string) sheetrange.Value {
	for _, k := range keys {
		if v := rec.Value(k); !v.IsEmpty() {
			return v
		}
	}
	return sheetrange.Empty()
}

func text(rec *sheetrange.Record, keys ...string) string {
	return strings.TrimSpace(first(rec, keys...).String())
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// toDate accepts date cells, Excel serial numbers and the common text layouts.
func toDate(v sheetrange.Value) (time.Time, error) {
	switch v.Kind {
	case sheetrange.KindDate:
		return v.Time, nil
	case sheetrange.KindNumber:
		return excelize.ExcelDateToTime(v.Num, false)
	case sheetrange.KindString:
		s := strings.TrimSpace(v.Str)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return time.Time{}, errors.New("empty date")
}
