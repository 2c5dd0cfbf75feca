package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/watchcore/internal/domain"
	"github.com/hamed0406/watchcore/internal/events"
	"github.com/hamed0406/watchcore/internal/httpapi/middleware"
	"github.com/hamed0406/watchcore/internal/orchestrator"
	"github.com/hamed0406/watchcore/internal/repo/memory"
)

type okChecker struct{}

func (okChecker) Check(ctx context.Context, t *domain.Target) domain.CheckResult {
	return domain.CheckResult{
		TargetID: t.ID, Outcome: domain.Reachable,
		CheckedAt: time.Now().UTC(), Attempts: 1,
	}
}

func newTestServer(t *testing.T, keys middleware.Keys) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	store := memory.New()
	bus := events.NewBus(zap.NewNop(), 64)
	orch, err := orchestrator.New(zap.NewNop(), store, store, bus, okChecker{}, orchestrator.Defaults{
		Interval:  time.Hour,
		StopGrace: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := orch.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(orch.Stop)

	srv := httptest.NewServer(NewServer(zap.NewNop(), orch, keys).Router())
	t.Cleanup(srv.Close)
	return srv, orch
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAPI_AddTarget(t *testing.T) {
	srv, _ := newTestServer(t, middleware.Keys{})

	resp := postJSON(t, srv.URL+"/api/targets",
		`{"kind":"http","address":"http://127.0.0.1:9","interval_ms":60000}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("want 201, got %d", resp.StatusCode)
	}

	var out struct {
		Target domain.Target `json:"target"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Target.ID == "" {
		t.Fatalf("response must carry the minted id")
	}
}

func TestAPI_AddTargetValidation(t *testing.T) {
	srv, _ := newTestServer(t, middleware.Keys{})

	resp := postJSON(t, srv.URL+"/api/targets", `{"kind":"http"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["field"] != "address" {
		t.Fatalf("want address rejection, got %v", out)
	}

	resp2 := postJSON(t, srv.URL+"/api/targets", `{not json`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 on garbage, got %d", resp2.StatusCode)
	}
}

func TestAPI_StateAndStats(t *testing.T) {
	srv, orch := newTestServer(t, middleware.Keys{})

	tg, err := orch.AddTarget(context.Background(), &domain.Target{
		Kind: domain.ProbeTCP, Address: "127.0.0.1:9", Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/targets/" + string(tg.ID) + "/state")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("no checks yet: want 404, got %d", resp.StatusCode)
	}

	if err := orch.CheckNow(tg.ID); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := orch.State(tg.ID); ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp2, err := http.Get(srv.URL + "/api/targets/" + string(tg.ID) + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp2.StatusCode)
	}
	var st domain.EntityState
	if err := json.NewDecoder(resp2.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Outcome != domain.Reachable {
		t.Fatalf("want reachable state, got %+v", st)
	}

	resp3, err := http.Get(srv.URL + "/api/cache/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Fatalf("stats: want 200, got %d", resp3.StatusCode)
	}
}

func TestAPI_AdminRoutesNeedAdminKey(t *testing.T) {
	keys := middleware.Keys{Public: []string{"pub"}, Admin: []string{"adm"}}
	srv, _ := newTestServer(t, keys)

	// no key at all
	resp := postJSON(t, srv.URL+"/api/targets", `{"kind":"http","address":"http://127.0.0.1:9"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("want 403 without key, got %d", resp.StatusCode)
	}

	// public key cannot write
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/targets",
		strings.NewReader(`{"kind":"http","address":"http://127.0.0.1:9"}`))
	req.Header.Set("X-API-Key", "pub")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Fatalf("public key must not write, got %d", resp2.StatusCode)
	}

	// admin key can
	req2, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/targets",
		strings.NewReader(`{"kind":"http","address":"http://127.0.0.1:9"}`))
	req2.Header.Set("X-API-Key", "adm")
	resp3, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusCreated {
		t.Fatalf("admin key should write, got %d", resp3.StatusCode)
	}

	// reads need some key
	resp4, err := http.Get(srv.URL + "/api/targets")
	if err != nil {
		t.Fatal(err)
	}
	resp4.Body.Close()
	if resp4.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 on read without key, got %d", resp4.StatusCode)
	}
}

func TestAPI_RemoveIsIdempotent(t *testing.T) {
	srv, orch := newTestServer(t, middleware.Keys{})

	tg, err := orch.AddTarget(context.Background(), &domain.Target{
		Kind: domain.ProbeTCP, Address: "127.0.0.1:9", Enabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/targets/"+string(tg.ID), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete %d: want 204, got %d", i, resp.StatusCode)
		}
	}
}
