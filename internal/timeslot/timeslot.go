// Package timeslot maps shifts to their ordered slot start times and computes the
// slots and the wall-clock window a session occupies.
package timeslot

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrUnknownShift is returned when a shift has no slot sequence.
	ErrUnknownShift = errors.New("timeslot: unknown shift")
	// ErrUnknownStart is returned when a start time is not a slot of its shift.
	ErrUnknownStart = errors.New("timeslot: start time is not a slot of the shift")
	// ErrLoadOverflow is returned when load is not positive or runs past the last slot.
	ErrLoadOverflow = errors.New("timeslot: load does not fit in the shift")
)

const clockLayout = "15:04"

// DefaultSlotLength is the length of the only slot of a single-slot shift when no
// other shift of the table has two slots to measure from.
const DefaultSlotLength = 50 * time.Minute

// Table is an immutable mapping from shift name to its ordered slot start times.
// Slot i of a shift lasts until slot i+1 starts; the last slot lasts as long as the
// shortest gap of its shift.
type Table struct {
	shifts map[string][]string
	index  map[string]map[string]int
	starts map[string][]time.Duration
	length map[string]time.Duration
}

// Window is the set of slots a session occupies together with the wall-clock
// interval [From, To) they cover, measured from midnight.
type Window struct {
	Shift string
	Slots []string
	From  time.Duration
	To    time.Duration
}

// Overlaps reports whether two windows share any instant. Windows of different
// shifts are compared on the clock, not by slot label.
func (w Window) Overlaps(o Window) bool {
	if len(w.Slots) == 0 || len(o.Slots) == 0 {
		return false
	}
	return w.From < o.To && o.From < w.To
}

// NewTable validates and freezes the given slot sequences. Each sequence must hold
// unique HH:MM values in strictly ascending order.
func NewTable(shifts map[string][]string) (*Table, error) {
	t := &Table{
		shifts: make(map[string][]string, len(shifts)),
		index:  make(map[string]map[string]int, len(shifts)),
		starts: make(map[string][]time.Duration, len(shifts)),
		length: make(map[string]time.Duration, len(shifts)),
	}
	var shortest time.Duration
	for name, slots := range shifts {
		if name == "" {
			return nil, fmt.Errorf("timeslot: empty shift name")
		}
		if len(slots) == 0 {
			return nil, fmt.Errorf("timeslot: shift %q has no slots", name)
		}
		seq := make([]string, len(slots))
		idx := make(map[string]int, len(slots))
		starts := make([]time.Duration, len(slots))
		var gap time.Duration
		var prev time.Time
		for i, raw := range slots {
			at, err := time.Parse(clockLayout, raw)
			if err != nil {
				return nil, fmt.Errorf("timeslot: shift %q slot %q: %w", name, raw, err)
			}
			if i > 0 && !at.After(prev) {
				return nil, fmt.Errorf("timeslot: shift %q slots must be ascending at %q", name, raw)
			}
			if i > 0 && (gap == 0 || at.Sub(prev) < gap) {
				gap = at.Sub(prev)
			}
			prev = at
			seq[i] = at.Format(clockLayout)
			idx[seq[i]] = i
			starts[i] = time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute
		}
		if gap > 0 && (shortest == 0 || gap < shortest) {
			shortest = gap
		}
		t.shifts[name] = seq
		t.index[name] = idx
		t.starts[name] = starts
		t.length[name] = gap
	}
	if shortest == 0 {
		shortest = DefaultSlotLength
	}
	for name, gap := range t.length {
		if gap == 0 {
			t.length[name] = shortest
		}
	}
	return t, nil
}

// Shifts returns the configured shift names in lexical order.
func (t *Table) Shifts() []string {
	names := make([]string, 0, len(t.shifts))
	for name := range t.shifts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Slots returns a copy of the slot sequence for shift.
func (t *Table) Slots(shift string) ([]string, error) {
	seq, ok := t.shifts[shift]
	if !ok {
		return nil, ErrUnknownShift
	}
	return append([]string(nil), seq...), nil
}

// Occupied returns the load consecutive slots starting at start within shift.
func (t *Table) Occupied(shift, start string, load int) ([]string, error) {
	seq, ok := t.shifts[shift]
	if !ok {
		return nil, ErrUnknownShift
	}
	i, ok := t.index[shift][Normalize(start)]
	if !ok {
		return nil, ErrUnknownStart
	}
	if load <= 0 || i+load > len(seq) {
		return nil, ErrLoadOverflow
	}
	return append([]string(nil), seq[i:i+load]...), nil
}

// Window resolves the slots occupied by a session and the clock interval they cover.
func (t *Table) Window(shift, start string, load int) (Window, error) {
	slots, err := t.Occupied(shift, start, load)
	if err != nil {
		return Window{}, err
	}
	starts := t.starts[shift]
	first := t.index[shift][slots[0]]
	last := first + len(slots) - 1
	end := starts[last] + t.length[shift]
	if last+1 < len(starts) {
		end = starts[last+1]
	}
	return Window{Shift: shift, Slots: slots, From: starts[first], To: end}, nil
}

// Normalize renders a clock string as HH:MM, accepting HH:MM:SS. Unparseable input is returned unchanged.
func Normalize(clock string) string {
	for _, layout := range []string{clockLayout, "15:04:05"} {
		if at, err := time.Parse(layout, clock); err == nil {
			return at.Format(clockLayout)
		}
	}
	return clock
}
