// Package forward posts normalized call records to the per-company
// spreadsheet automation endpoints. Delivery is single-shot: one POST
// with a fixed timeout, no retries.
package forward

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// postTimeout bounds the outbound request. The automation endpoints are
// slow scripts, so this sits above the enrichment timeout.
const postTimeout = 12 * time.Second

// Record is the flat normalized record sent downstream.
type Record map[string]any

// Status is the forwarding outcome.
type Status string

const (
	// StatusSent means the endpoint accepted the POST (any completed
	// response counts; the scripts do not return meaningful codes).
	StatusSent Status = "sent"
	// StatusFailed means the request could not be completed.
	StatusFailed Status = "failed"
	// StatusSkipped means no endpoint URL is configured, so no network
	// call was attempted.
	StatusSkipped Status = "skipped"
)

// OK reports whether the record reached the endpoint.
func (s Status) OK() bool { return s == StatusSent }

// Forwarder serializes records and delivers them over the shared client.
type Forwarder struct {
	client *http.Client
}

// NewForwarder builds a forwarder. Certificate verification is disabled
// to match the automation endpoints' deployment.
func NewForwarder() *Forwarder {
	return &Forwarder{
		client: &http.Client{
			Timeout: postTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Forward posts the record to url. Missing configuration and transport
// failures are logged, never raised.
func (f *Forwarder) Forward(ctx context.Context, url string, record Record) Status {
	if url == "" {
		log.Printf("[sheets] no endpoint URL configured, skipping forward")
		return StatusSkipped
	}

	body, err := json.Marshal(record)
	if err != nil {
		log.Printf("[sheets] marshal failed: %v", err)
		return StatusFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[sheets] bad endpoint URL: %v", err)
		return StatusFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("[sheets] forward failed: %v", err)
		return StatusFailed
	}
	defer resp.Body.Close()

	// The automation scripts answer with a short confirmation body.
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	log.Printf("[sheets] forwarded call record, response: %s", reply)
	return StatusSent
}
