// Package availability implements the free/busy slot engine.
//
// The engine is pure: it partitions a half-open time range into
// fixed-width slots and classifies each slot against a set of calendar
// events, merged across accounts. It performs no I/O and never consults
// the wall clock, so results are fully deterministic.
package availability

import "time"

// Slot status values, in increasing order of "busy-ness".
const (
	StatusFree      = "free"
	StatusTentative = "tentative"
	StatusBusy      = "busy"
)

// Event statuses recognized by the classifier. Cancelled events never
// affect slot status.
const (
	EventConfirmed = "confirmed"
	EventTentative = "tentative"
	EventCancelled = "cancelled"
)

// Supported slot granularities in milliseconds.
const (
	Granularity15m = 15 * 60 * 1000
	Granularity30m = 30 * 60 * 1000
	Granularity1h  = 60 * 60 * 1000
)

// TimeSlot is a half-open interval [StartMs, EndMs) in Unix milliseconds.
type TimeSlot struct {
	StartMs int64
	EndMs   int64
}

// Event is the minimal event view the engine needs. Intervals are
// half-open [StartTs, EndTs) in Unix milliseconds.
type Event struct {
	StartTs   int64
	EndTs     int64
	Status    string
	AccountID string
}

// Slot is a classified availability slot. ConflictingEvents is omitted
// from the wire representation when the slot is free.
type Slot struct {
	Start             string `json:"start"`
	End               string `json:"end"`
	Status            string `json:"status"`
	ConflictingEvents *int   `json:"conflicting_events,omitempty"`
}

// isoMillis formats a Unix-millisecond timestamp as ISO 8601 with
// millisecond precision and an explicit UTC designator.
func isoMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// GenerateTimeSlots partitions [startMs, endMs) into consecutive,
// non-overlapping slots of granularityMs width. The final slot is
// truncated to end exactly at endMs; the union of all slots equals the
// input range with no time dropped or duplicated. A zero-length or
// inverted range yields no slots.
func GenerateTimeSlots(startMs, endMs, granularityMs int64) []TimeSlot {
	if granularityMs <= 0 || endMs <= startMs {
		return nil
	}

	slots := make([]TimeSlot, 0, (endMs-startMs+granularityMs-1)/granularityMs)
	for cursor := startMs; cursor < endMs; cursor += granularityMs {
		end := cursor + granularityMs
		if end > endMs {
			end = endMs
		}
		slots = append(slots, TimeSlot{StartMs: cursor, EndMs: end})
	}
	return slots
}

// overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending exactly where the other
// starts does not overlap.
func overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && bStart < aEnd
}

// ComputeAvailabilitySlots classifies each slot against the events,
// merged as a union of busy-ness across accounts. A slot with any
// overlapping confirmed event is busy; otherwise any overlapping
// tentative event makes it tentative; otherwise it is free. The conflict
// count covers all overlapping non-cancelled events and is present only
// when the slot is not free.
func ComputeAvailabilitySlots(slots []TimeSlot, events []Event) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		status := StatusFree
		conflicts := 0
		for _, ev := range events {
			if ev.Status == EventCancelled {
				continue
			}
			if !overlaps(ev.StartTs, ev.EndTs, slot.StartMs, slot.EndMs) {
				continue
			}
			conflicts++
			if ev.Status == EventConfirmed {
				status = StatusBusy
			} else if status != StatusBusy {
				status = StatusTentative
			}
		}

		s := Slot{
			Start:  isoMillis(slot.StartMs),
			End:    isoMillis(slot.EndMs),
			Status: status,
		}
		if status != StatusFree {
			n := conflicts
			s.ConflictingEvents = &n
		}
		out = append(out, s)
	}
	return out
}
