package domain

import (
	"errors"
	"testing"
	"time"
)

func validTarget() *Target {
	return &Target{
		ID:         "T1",
		Kind:       ProbeHTTP,
		Address:    "https://example.com",
		Timeout:    5 * time.Second,
		Interval:   30 * time.Second,
		RetryCount: 2,
		Enabled:    true,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validTarget().Validate(); err != nil {
		t.Fatalf("expected valid target, got %v", err)
	}
	tcp := validTarget()
	tcp.Kind = ProbeTCP
	tcp.Address = "db.internal:5432"
	if err := tcp.Validate(); err != nil {
		t.Fatalf("expected valid tcp target, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Target)
		field string
	}{
		{"missing address", func(x *Target) { x.Address = " " }, "address"},
		{"relative url", func(x *Target) { x.Address = "example.com" }, "address"},
		{"tcp without port", func(x *Target) { x.Kind = ProbeTCP; x.Address = "dbhost" }, "address"},
		{"unknown kind", func(x *Target) { x.Kind = "icmp" }, "kind"},
		{"zero timeout", func(x *Target) { x.Timeout = 0 }, "timeout"},
		{"tiny interval", func(x *Target) { x.Interval = 100 * time.Millisecond }, "interval"},
		{"negative retries", func(x *Target) { x.RetryCount = -1 }, "retry_count"},
	}
	for _, c := range cases {
		tg := validTarget()
		c.mut(tg)
		err := tg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: want ValidationError, got %v", c.name, err)
		}
		if verr.Field != c.field {
			t.Fatalf("%s: want field %q, got %q", c.name, c.field, verr.Field)
		}
	}
}

func TestEntityState_Apply(t *testing.T) {
	now := time.Now().UTC()
	var st EntityState

	st, changed := st.Apply(CheckResult{TargetID: "T1", Outcome: Unreachable, CheckedAt: now})
	if !changed || st.ConsecutiveFailures != 1 {
		t.Fatalf("first failure: changed=%v failures=%d", changed, st.ConsecutiveFailures)
	}

	st, changed = st.Apply(CheckResult{TargetID: "T1", Outcome: Degraded, CheckedAt: now.Add(time.Second)})
	if !changed {
		t.Fatalf("unreachable -> degraded should count as a change")
	}
	if st.ConsecutiveFailures != 2 {
		t.Fatalf("degraded must increment failures, got %d", st.ConsecutiveFailures)
	}

	st, changed = st.Apply(CheckResult{TargetID: "T1", Outcome: Reachable, CheckedAt: now.Add(2 * time.Second)})
	if !changed || st.ConsecutiveFailures != 0 {
		t.Fatalf("recovery: changed=%v failures=%d", changed, st.ConsecutiveFailures)
	}

	st, changed = st.Apply(CheckResult{TargetID: "T1", Outcome: Reachable, CheckedAt: now.Add(3 * time.Second)})
	if changed {
		t.Fatalf("reachable -> reachable is not a change")
	}
	if !st.LastChecked.Equal(now.Add(3 * time.Second)) {
		t.Fatalf("LastChecked not advanced: %v", st.LastChecked)
	}
}

func TestRebuildState(t *testing.T) {
	now := time.Now().UTC()
	// newest first: three failures, then an old success
	recent := []*CheckResult{
		{Outcome: Unreachable, CheckedAt: now},
		{Outcome: Unreachable, CheckedAt: now.Add(-time.Minute)},
		{Outcome: Degraded, CheckedAt: now.Add(-2 * time.Minute)},
		{Outcome: Reachable, CheckedAt: now.Add(-3 * time.Minute)},
	}
	st, ok := RebuildState("T1", recent)
	if !ok {
		t.Fatalf("expected state from history")
	}
	if st.Outcome != Unreachable || st.ConsecutiveFailures != 3 {
		t.Fatalf("bad rebuild: %+v", st)
	}
	if !st.LastChecked.Equal(now) {
		t.Fatalf("LastChecked should be the newest row, got %v", st.LastChecked)
	}
	if !st.LastChanged.Equal(now.Add(-time.Minute)) {
		t.Fatalf("LastChanged should be where the unreachable run starts, got %v", st.LastChanged)
	}

	if _, ok := RebuildState("T1", nil); ok {
		t.Fatalf("no history must yield no state")
	}
}
