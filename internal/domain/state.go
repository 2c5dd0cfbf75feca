package domain

import "time"

// EntityState is the cached view of a target's health. It lives in the
// entity cache; nobody else holds a mutable copy.
type EntityState struct {
	TargetID            TargetID  `json:"target_id"`
	Outcome             Outcome   `json:"outcome"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastChecked         time.Time `json:"last_checked"`
	LastChanged         time.Time `json:"last_changed"`
}

// Apply folds a check result into the state and reports whether the
// outcome changed. The failure count resets on reachable and grows on
// unreachable or degraded.
func (s EntityState) Apply(r CheckResult) (EntityState, bool) {
	next := s
	next.TargetID = r.TargetID
	next.LastChecked = r.CheckedAt
	if r.Outcome.Failed() {
		next.ConsecutiveFailures++
	} else {
		next.ConsecutiveFailures = 0
	}
	changed := s.Outcome != r.Outcome
	if changed {
		next.Outcome = r.Outcome
		next.LastChanged = r.CheckedAt
	}
	return next, changed
}

// RebuildState reconstructs an EntityState from persisted history,
// newest-first, as loaded at boot. Returns false when there is no history.
func RebuildState(id TargetID, recent []*CheckResult) (EntityState, bool) {
	if len(recent) == 0 {
		return EntityState{}, false
	}
	latest := recent[0]
	st := EntityState{
		TargetID:    id,
		Outcome:     latest.Outcome,
		LastChecked: latest.CheckedAt,
	}
	for _, r := range recent {
		if !r.Outcome.Failed() {
			break
		}
		st.ConsecutiveFailures++
	}
	// the change point is where the outcome run starts
	st.LastChanged = latest.CheckedAt
	for _, r := range recent {
		if r.Outcome != latest.Outcome {
			break
		}
		st.LastChanged = r.CheckedAt
	}
	return st, true
}
