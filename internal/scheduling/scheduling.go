// Package scheduling ranks candidate meeting slots inside a requested
// window. It is pure: callers load events and constraints, and the
// ranking works entirely on millisecond intervals.
package scheduling

import (
	"sort"
	"time"
)

// Constraint kinds understood by the ranker.
const (
	KindWorkingHours = "working_hours"
	KindBlackout     = "blackout"
	KindBuffer       = "buffer"
)

// Constraint is a decoded scheduling constraint. Only the fields for its
// Kind are meaningful.
type Constraint struct {
	Kind          string
	StartHour     int   // working_hours
	EndHour       int   // working_hours
	StartMs       int64 // blackout
	EndMs         int64 // blackout
	BufferMinutes int   // buffer
}

// Busy is an interval that cannot host a candidate.
type Busy struct {
	StartMs int64
	EndMs   int64
}

// Candidate is one ranked slot. Rank is 1-based; higher Score ranks
// first.
type Candidate struct {
	StartMs int64
	EndMs   int64
	Score   float64
	Rank    int
}

// Request describes one propose call.
type Request struct {
	WindowStartMs int64
	WindowEndMs   int64
	DurationMs    int64
	GranularityMs int64
	Count         int
}

// ProposeCandidates returns up to req.Count candidate slots inside the
// window, stepped at the granularity, avoiding busy intervals and
// honoring constraints. Buffer constraints widen every busy interval;
// blackouts become busy intervals; working-hours constraints reject
// candidates whose span leaves the allowed UTC hours.
func ProposeCandidates(req Request, busy []Busy, constraints []Constraint) []Candidate {
	if req.DurationMs <= 0 || req.GranularityMs <= 0 || req.Count <= 0 ||
		req.WindowEndMs-req.WindowStartMs < req.DurationMs {
		return nil
	}

	bufferMs := int64(0)
	var workingHours []Constraint
	for _, c := range constraints {
		switch c.Kind {
		case KindBuffer:
			if ms := int64(c.BufferMinutes) * 60_000; ms > bufferMs {
				bufferMs = ms
			}
		case KindBlackout:
			busy = append(busy, Busy{StartMs: c.StartMs, EndMs: c.EndMs})
		case KindWorkingHours:
			workingHours = append(workingHours, c)
		}
	}

	merged := mergeBusy(busy, bufferMs)

	var candidates []Candidate
	for start := req.WindowStartMs; start+req.DurationMs <= req.WindowEndMs; start += req.GranularityMs {
		end := start + req.DurationMs
		if conflicts(merged, start, end) {
			continue
		}
		if !withinWorkingHours(workingHours, start, end) {
			continue
		}
		candidates = append(candidates, Candidate{
			StartMs: start,
			EndMs:   end,
			Score:   score(req, start),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].StartMs < candidates[j].StartMs
	})
	if len(candidates) > req.Count {
		candidates = candidates[:req.Count]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	return candidates
}

// score prefers earlier slots, with a small bonus for starts aligned to
// the hour.
func score(req Request, startMs int64) float64 {
	span := req.WindowEndMs - req.DurationMs - req.WindowStartMs
	s := 1.0
	if span > 0 {
		s = 1.0 - float64(startMs-req.WindowStartMs)/float64(span)*0.8
	}
	if startMs%3_600_000 == 0 {
		s += 0.1
	}
	return s
}

// mergeBusy widens each interval by bufferMs on both sides and merges
// overlapping or touching intervals into a sorted list.
func mergeBusy(busy []Busy, bufferMs int64) []Busy {
	if len(busy) == 0 {
		return nil
	}
	widened := make([]Busy, 0, len(busy))
	for _, b := range busy {
		if b.EndMs <= b.StartMs {
			continue
		}
		widened = append(widened, Busy{StartMs: b.StartMs - bufferMs, EndMs: b.EndMs + bufferMs})
	}
	sort.Slice(widened, func(i, j int) bool { return widened[i].StartMs < widened[j].StartMs })

	var merged []Busy
	for _, b := range widened {
		if n := len(merged); n > 0 && b.StartMs <= merged[n-1].EndMs {
			if b.EndMs > merged[n-1].EndMs {
				merged[n-1].EndMs = b.EndMs
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

func conflicts(merged []Busy, startMs, endMs int64) bool {
	// merged is sorted; binary search for the first interval ending
	// after the candidate start.
	i := sort.Search(len(merged), func(i int) bool { return merged[i].EndMs > startMs })
	return i < len(merged) && merged[i].StartMs < endMs
}

// withinWorkingHours checks the candidate against every working-hours
// constraint; all must pass. Hours are evaluated in UTC, matching the
// millisecond interval convention used across the engines.
func withinWorkingHours(constraints []Constraint, startMs, endMs int64) bool {
	for _, c := range constraints {
		start := time.UnixMilli(startMs).UTC()
		end := time.UnixMilli(endMs).UTC()
		startMin := start.Hour()*60 + start.Minute()
		endMin := end.Hour()*60 + end.Minute()
		if endMin == 0 && endMs > startMs {
			endMin = 24 * 60
		}
		if !end.Truncate(24 * time.Hour).Equal(start.Truncate(24 * time.Hour)) {
			// Crossing midnight never fits a same-day working window.
			return false
		}
		if startMin < c.StartHour*60 || endMin > c.EndHour*60 {
			return false
		}
	}
	return true
}
