package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// INTEGRATION TEST SUITE
//
// These tests validate the service end-to-end:
//
//   Platform webhook → HTTP API → extract → (enrich) → forward → Response
//
// The service must already be running, with BASE_URL pointing at it; the
// suite is skipped otherwise. Forwarding targets should be stub endpoints
// (e.g. SHEET_URLS="test:http://localhost:9090/sink") so no production
// sheet receives test rows.
////////////////////////////////////////////////////////////////////////////////

func baseURL(t *testing.T) string {
	t.Helper()
	v := os.Getenv("BASE_URL")
	if v == "" {
		t.Skip("BASE_URL not set; skipping black-box suite")
	}
	return v
}

// unique generates a unique call ID so tests never collide with previous
// runs (the duplicate guard persists across deliveries).
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// waitReady polls /ready until the store dependency is reachable.
func waitReady(t *testing.T) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL(t) + "/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(300 * time.Millisecond)
	}

	t.Fatalf("service not ready after 30s")
}

// postJSON performs a POST with JSON body.
func postJSON(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	b, _ := json.Marshal(payload)

	req, _ := http.NewRequest("POST", baseURL(t)+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 30 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

// analyzedPayload builds a minimal call_analyzed delivery.
func analyzedPayload(callID string) map[string]any {
	return map[string]any{
		"event": "call_analyzed",
		"call": map[string]any{
			"call_id":         callID,
			"start_timestamp": time.Now().UnixMilli(),
			"collected_dynamic_variables": map[string]any{
				"customerName": "Integration Test",
			},
		},
	}
}

func status(t *testing.T, b []byte) string {
	var r struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &r); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	return r.Status
}

////////////////////////////////////////////////////////////////////////////////
// HEALTH & STATUS TESTS
////////////////////////////////////////////////////////////////////////////////

func TestHealth_ReturnsOK(t *testing.T) {
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(baseURL(t) + "/health")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health expected 200 got %d", resp.StatusCode)
	}
}

func TestOverview_ListsReceivers(t *testing.T) {
	waitReady(t)

	resp, err := (&http.Client{Timeout: 5 * time.Second}).Get(baseURL(t) + "/")
	if err != nil {
		t.Fatalf("overview failed: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var doc struct {
		Receivers []string `json:"receivers"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("invalid overview JSON: %v", err)
	}
	if len(doc.Receivers) == 0 {
		t.Fatal("overview lists no receivers")
	}
}

////////////////////////////////////////////////////////////////////////////////
// WEBHOOK CONTRACT TESTS
////////////////////////////////////////////////////////////////////////////////

// Non-analyzed events are acknowledged but ignored.
func TestWebhook_IgnoresOtherEventKinds(t *testing.T) {
	waitReady(t)

	s, b := postJSON(t, "/webhooks/transport", map[string]any{
		"event": "call_started",
		"call":  map[string]any{"call_id": unique("ignore")},
	})
	if s != http.StatusOK || status(t, b) != "ignored" {
		t.Fatalf("expected ignored got %d %s", s, b)
	}
}

// Malformed bodies are rejected with 400.
func TestWebhook_RejectsInvalidJSON(t *testing.T) {
	waitReady(t)

	req, _ := http.NewRequest("POST", baseURL(t)+"/webhooks/transport", bytes.NewReader([]byte("{nope")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.StatusCode)
	}
}

// A dispatch without a client is ignored, never forwarded.
func TestDispatch_RequiresClient(t *testing.T) {
	waitReady(t)

	s, b := postJSON(t, "/webhooks/dispatch", analyzedPayload(unique("noclient")))
	if s != http.StatusOK || status(t, b) != "ignored" {
		t.Fatalf("expected ignored got %d %s", s, b)
	}
}

// Redelivery of the same analyzed call is suppressed by the guard.
func TestFireProtection_SuppressesDuplicateDelivery(t *testing.T) {
	waitReady(t)

	payload := analyzedPayload(unique("dup"))

	// A missing FIREPROTECTION_SHEET_URL makes the first delivery fail
	// with 500; the fingerprint is recorded either way.
	s1, b1 := postJSON(t, "/webhooks/fireprotection", payload)
	t.Logf("first delivery: %d %s", s1, b1)

	s2, b2 := postJSON(t, "/webhooks/fireprotection", payload)
	if s2 != http.StatusOK || status(t, b2) != "skipped" {
		t.Fatalf("expected duplicate skip, got %d %s", s2, b2)
	}
}
