package assignment

import (
	"math/rand"

	"support-hub-backend/internal/model"
)

type StrategyName string

const (
	StrategyRoundRobin  StrategyName = "round_robin"
	StrategyLeastLoaded StrategyName = "least_loaded"
	StrategyRandom      StrategyName = "random"
)

// strategyFunc picks one agent from a non-empty, AgentID-sorted candidate
// slice. lastAssigned is the round-robin cursor value, empty for other
// strategies or when nothing has been assigned yet.
type strategyFunc func(candidates []model.AgentItem, lastAssigned string) model.AgentItem

var strategies = map[StrategyName]strategyFunc{
	StrategyRoundRobin:  pickRoundRobin,
	StrategyLeastLoaded: pickLeastLoaded,
	StrategyRandom:      pickRandom,
}

func strategyFor(name StrategyName) strategyFunc {
	if fn, ok := strategies[name]; ok {
		return fn
	}
	return pickRoundRobin
}

// pickRoundRobin takes the candidate after the last-assigned one,
// wrapping. When the last-assigned agent left the pool the first
// candidate is chosen. Fairness is best-effort: two concurrent callers
// can observe the same cursor and pick the same agent; the reservation
// step keeps that from over-booking.
func pickRoundRobin(candidates []model.AgentItem, lastAssigned string) model.AgentItem {
	if lastAssigned == "" {
		return candidates[0]
	}
	for i, a := range candidates {
		if a.AgentID == lastAssigned {
			return candidates[(i+1)%len(candidates)]
		}
	}
	return candidates[0]
}

// pickLeastLoaded returns the candidate with the fewest active
// conversations; ties break on the smaller load ratio, then first in
// sort order.
func pickLeastLoaded(candidates []model.AgentItem, _ string) model.AgentItem {
	best := candidates[0]
	for _, a := range candidates[1:] {
		if a.ActiveCount < best.ActiveCount {
			best = a
			continue
		}
		if a.ActiveCount == best.ActiveCount && loadRatio(a) < loadRatio(best) {
			best = a
		}
	}
	return best
}

func pickRandom(candidates []model.AgentItem, _ string) model.AgentItem {
	return candidates[rand.Intn(len(candidates))]
}

func loadRatio(a model.AgentItem) float64 {
	if a.MaxConcurrent <= 0 {
		return 1
	}
	return float64(a.ActiveCount) / float64(a.MaxConcurrent)
}
