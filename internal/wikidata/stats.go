package wikidata

import (
	"math"
	"slices"
	"sort"
	"sync"
	"time"
)

// Call names the kind of resolver request.
type Call string

const (
	// CallSitelink is the SPARQL lookup of an item by article title.
	CallSitelink Call = "sitelink"
	// CallEntity is a wbgetentities fetch.
	CallEntity Call = "entity"
)

// Outcome classifies one resolver call.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeError     Outcome = "error"
	// OutcomeCached is an entity served from the client cache. It counts
	// as found but carries no latency.
	OutcomeCached Outcome = "cached"
)

type lookup struct {
	at      time.Time
	call    Call
	ms      int64
	outcome Outcome
}

// Latency summarizes request durations in milliseconds.
type Latency struct {
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms int64   `json:"p50_ms"`
	P95Ms int64   `json:"p95_ms"`
}

// CallStats is the activity of one call kind.
type CallStats struct {
	Count    int             `json:"count"`
	Latency  Latency         `json:"latency"`
	Outcomes map[Outcome]int `json:"outcomes"`
}

// StatsSnapshot is the resolver activity inside the window.
type StatsSnapshot struct {
	Window string `json:"window"`
	Count  int    `json:"count"`
	// HitRate is found or cached over every answered call; errors are
	// left out.
	HitRate  float64            `json:"hit_rate"`
	Latency  Latency            `json:"latency"`
	Outcomes map[Outcome]int    `json:"outcomes,omitempty"`
	Calls    map[Call]CallStats `json:"calls,omitempty"`
}

// ResolverStats keeps the resolver calls of a rolling window.
type ResolverStats struct {
	mu      sync.Mutex
	lookups []lookup
	window  time.Duration
}

func NewResolverStats(window time.Duration) *ResolverStats {
	if window <= 0 {
		window = time.Hour
	}
	return &ResolverStats{window: window}
}

// Record adds a finished call.
func (s *ResolverStats) Record(call Call, d time.Duration, outcome Outcome) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now)
	s.lookups = append(s.lookups, lookup{at: now, call: call, ms: max(d.Milliseconds(), 0), outcome: outcome})
}

func (s *ResolverStats) Snapshot() StatsSnapshot {
	now := time.Now()
	s.mu.Lock()
	s.expireLocked(now)
	lookups := slices.Clone(s.lookups)
	s.mu.Unlock()

	snap := StatsSnapshot{Window: s.window.String(), Count: len(lookups)}
	if len(lookups) == 0 {
		return snap
	}
	snap.Latency = latencyOf(lookups)
	snap.Outcomes = outcomesOf(lookups)
	snap.Calls = map[Call]CallStats{}
	for _, call := range []Call{CallSitelink, CallEntity} {
		var of []lookup
		for _, l := range lookups {
			if l.call == call {
				of = append(of, l)
			}
		}
		if len(of) == 0 {
			continue
		}
		snap.Calls[call] = CallStats{Count: len(of), Latency: latencyOf(of), Outcomes: outcomesOf(of)}
	}

	o := snap.Outcomes
	hits := o[OutcomeFound] + o[OutcomeCached]
	if answered := hits + o[OutcomeNotFound] + o[OutcomeAmbiguous]; answered > 0 {
		snap.HitRate = float64(hits) / float64(answered)
	}
	return snap
}

// expireLocked drops the calls older than the window. Calls are appended
// in time order, so the expired ones form a prefix.
func (s *ResolverStats) expireLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := sort.Search(len(s.lookups), func(i int) bool { return !s.lookups[i].at.Before(cutoff) })
	if i > 0 {
		s.lookups = append(s.lookups[:0], s.lookups[i:]...)
	}
}

func outcomesOf(lookups []lookup) map[Outcome]int {
	out := map[Outcome]int{}
	for _, l := range lookups {
		out[l.outcome]++
	}
	return out
}

// latencyOf ignores cache hits.
func latencyOf(lookups []lookup) Latency {
	var ms []int64
	for _, l := range lookups {
		if l.outcome != OutcomeCached {
			ms = append(ms, l.ms)
		}
	}
	if len(ms) == 0 {
		return Latency{}
	}
	slices.Sort(ms)
	var sum int64
	for _, v := range ms {
		sum += v
	}
	return Latency{
		MinMs: ms[0],
		MaxMs: ms[len(ms)-1],
		AvgMs: float64(sum) / float64(len(ms)),
		P50Ms: nearestRank(ms, 50),
		P95Ms: nearestRank(ms, 95),
	}
}

// nearestRank returns the smallest value with at least pct percent of
// sorted at or below it.
func nearestRank(sorted []int64, pct float64) int64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}
