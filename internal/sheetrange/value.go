package sheetrange

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Value is a single cell value.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

func Empty() Value           { return Value{} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value   { return Value{Kind: KindBool, Bool: b} }
func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// IsEmpty reports whether the cell holds nothing but whitespace.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty || (v.Kind == KindString && strings.TrimSpace(v.Str) == "")
}

func (v Value) Equal(o Value) bool {
	if v.IsEmpty() || o.IsEmpty() {
		return v.IsEmpty() && o.IsEmpty()
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindDate:
		return v.Time.Equal(o.Time)
	}
	return true
}

// Of converts a Go value into a cell Value. Unknown types are stringified.
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Empty()
	case Value:
		return t
	case string:
		if t == "" {
			return Empty()
		}
		return String(t)
	case int:
		return Number(float64(t))
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := strconv.ParseFloat(fmt.Sprint(t), 64)
		return Number(n)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case bool:
		return Boolean(t)
	case time.Time:
		if t.IsZero() {
			return Empty()
		}
		return Date(t)
	case *time.Time:
		if t == nil || t.IsZero() {
			return Empty()
		}
		return Date(*t)
	case interface{ String() string }:
		return Of(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}

// Any returns the value in the form excelize expects for SetCellValue.
func (v Value) Any() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindDate:
		return v.Time
	default:
		return ""
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDate:
		if v.Time.Hour() == 0 && v.Time.Minute() == 0 && v.Time.Second() == 0 {
			return v.Time.Format(time.DateOnly)
		}
		return v.Time.Format(time.DateTime)
	default:
		return ""
	}
}

// Int returns the value as an integer when it holds a whole number, either as a
// number cell or as numeric text.
func (v Value) Int() (int, bool) {
	switch v.Kind {
	case KindNumber:
		if v.Num == float64(int(v.Num)) {
			return int(v.Num), true
		}
	case KindString:
		if n, err := strconv.Atoi(strings.TrimSpace(v.Str)); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindEmpty:
		return []byte("null"), nil
	default:
		return json.Marshal(v.String())
	}
}
