package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hamed0406/watchcore/internal/domain"
)

func httpTarget(addr string, timeout time.Duration) *domain.Target {
	return &domain.Target{
		ID:      "T1",
		Kind:    domain.ProbeHTTP,
		Address: addr,
		Timeout: timeout,
		Enabled: true,
	}
}

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker()
	out := chk.Check(context.Background(), httpTarget(s.URL, 2*time.Second))
	if out.Outcome != domain.Reachable {
		t.Fatalf("want reachable, got %+v", out)
	}
	if out.Latency < 0 {
		t.Fatalf("latency should be >= 0, got %v", out.Latency)
	}
	if out.Message == "" {
		t.Fatalf("want status message, got empty")
	}
}

func TestHTTPChecker_Status500IsDegraded(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	chk := NewHTTPChecker()
	out := chk.Check(context.Background(), httpTarget(s.URL, 2*time.Second))
	if out.Outcome != domain.Degraded {
		t.Fatalf("want degraded on 500, got %+v", out)
	}
}

func TestHTTPChecker_TimeoutIsUnreachable(t *testing.T) {
	// server sleeps longer than the target timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker()
	out := chk.Check(context.Background(), httpTarget(s.URL, 50*time.Millisecond))
	if out.Outcome != domain.Unreachable {
		t.Fatalf("want unreachable on timeout, got %+v", out)
	}
	if out.Message != "timeout" {
		t.Fatalf("want message %q, got %q", "timeout", out.Message)
	}
}

func TestHTTPChecker_SlowIsDegraded(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	tg := httpTarget(s.URL, 2*time.Second)
	tg.DegradedAfter = 10 * time.Millisecond
	out := NewHTTPChecker().Check(context.Background(), tg)
	if out.Outcome != domain.Degraded {
		t.Fatalf("want degraded past latency threshold, got %+v", out)
	}
}
