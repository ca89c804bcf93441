package sheetrange

import "fmt"

// Pad aligns records to exactly slots positions numbered 1..slots by slotField.
// Records that carry a slot number keep it, the rest fill the lowest free slots in
// input order, and every remaining slot gets a placeholder holding only its number.
func Pad(records []*Record, slots int, slotField string) ([]*Record, error) {
	if slots <= 0 {
		return nil, fmt.Errorf("%w: slot count must be positive, got %d", ErrInvalidRange, slots)
	}
	if len(records) > slots {
		return nil, fmt.Errorf("%w: %d records for %d slots", ErrRegionOverflow, len(records), slots)
	}
	out := make([]*Record, slots)
	var floating []*Record
	for _, rec := range records {
		v := rec.Value(slotField)
		if v.IsEmpty() {
			floating = append(floating, rec)
			continue
		}
		n, ok := v.Int()
		if !ok || n < 1 || n > slots {
			return nil, fmt.Errorf("%w: %s %q outside 1..%d", ErrSlotConflict, slotField, v.String(), slots)
		}
		if out[n-1] != nil {
			return nil, fmt.Errorf("%w: %s %d used twice", ErrSlotConflict, slotField, n)
		}
		out[n-1] = rec
	}
	next := 0
	for _, rec := range floating {
		for out[next] != nil {
			next++
		}
		placed := rec.Clone()
		placed.Set(slotField, Number(float64(next+1)))
		out[next] = placed
	}
	for i := range out {
		if out[i] == nil {
			out[i] = Placeholder(slotField, i+1)
		}
	}
	return out, nil
}

// Placeholder returns an empty record that only carries its slot number.
func Placeholder(slotField string, slot int) *Record {
	rec := NewRecord()
	rec.Set(slotField, Number(float64(slot)))
	return rec
}

// IsPlaceholder reports whether rec holds nothing besides its slot number.
func IsPlaceholder(rec *Record, slotField string) bool {
	for _, k := range rec.Keys() {
		if k != slotField && !rec.Value(k).IsEmpty() {
			return false
		}
	}
	return true
}
