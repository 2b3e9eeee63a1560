// Package enrich resolves the on-call technician for a service category
// by querying the external assignment APIs. Resolution is best effort:
// every failure mode degrades to the next fallback, terminating in an
// all-empty contact, never an error.
package enrich

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds each assignment API call.
const requestTimeout = 10 * time.Second

// Contact is an on-call technician's contact record. A contact is usable
// when it has an email or a phone number.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Usable reports whether the contact can actually be reached.
func (c Contact) Usable() bool { return c.Email != "" || c.Phone != "" }

// Source tags where a resolved contact came from.
type Source string

const (
	SourceNone   Source = "none"
	SourceStatic Source = "static_fallback"
)

// Result is a resolved contact plus its provenance. Source carries the
// endpoint name when an assignment API answered.
type Result struct {
	Contact Contact
	Source  Source
}

// Endpoint is one assignment API.
type Endpoint struct {
	Name string
	URL  string
}

// Resolver queries assignment endpoints in a category-dependent order.
// Primary is tried first unless Routes maps the category to Secondary;
// the other endpoint is the fallback. Fallback is the statically
// configured contact used when no endpoint yields anything.
type Resolver struct {
	Primary   Endpoint
	Secondary Endpoint
	Routes    map[string]string
	Fallback  Contact

	client *http.Client
}

// NewResolver builds a resolver with the shared insecure-TLS client the
// assignment services require (they are deployed without verifiable
// certificates).
func NewResolver(primary, secondary Endpoint, routes map[string]string, fallback Contact) *Resolver {
	return &Resolver{
		Primary:   primary,
		Secondary: secondary,
		Routes:    routes,
		Fallback:  fallback,
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Resolve returns the first usable contact for the category. Order:
// category-selected endpoint, then the other endpoint, then the static
// fallback, then an all-empty contact.
func (r *Resolver) Resolve(ctx context.Context, category string) Result {
	first, second := r.Primary, r.Secondary
	if r.Routes[category] == r.Secondary.Name {
		first, second = r.Secondary, r.Primary
	}

	for _, ep := range []Endpoint{first, second} {
		if ep.URL == "" {
			continue
		}
		contact := r.query(ctx, ep)
		if contact.Usable() {
			log.Printf("[enrich] %s resolved tech %q for category %q", ep.Name, contact.Name, category)
			return Result{Contact: contact, Source: Source(ep.Name)}
		}
		log.Printf("[enrich] %s had no usable contact for category %q", ep.Name, category)
	}

	if r.Fallback.Usable() {
		return Result{Contact: r.Fallback, Source: SourceStatic}
	}
	return Result{Source: SourceNone}
}

// assignmentsResponse is the expected endpoint shape.
type assignmentsResponse struct {
	Assignments []struct {
		Techs []Contact `json:"techs"`
	} `json:"assignments"`
}

// query fetches one endpoint and returns the first usable tech across
// all assignments. Any failure returns an empty contact.
func (r *Resolver) query(ctx context.Context, ep Endpoint) Contact {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		log.Printf("[enrich] %s: bad URL: %v", ep.Name, err)
		return Contact{}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[enrich] %s: request failed: %v", ep.Name, err)
		return Contact{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[enrich] %s: read failed: %v", ep.Name, err)
		return Contact{}
	}

	var decoded assignmentsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Some deployments answer with a bare email address instead of
		// the assignments document.
		if raw := strings.TrimSpace(string(body)); !json.Valid(body) &&
			strings.Contains(raw, "@") && strings.Contains(raw, ".") {
			return Contact{Email: raw}
		}
		log.Printf("[enrich] %s: unexpected response shape", ep.Name)
		return Contact{}
	}

	for _, assignment := range decoded.Assignments {
		for _, tech := range assignment.Techs {
			if tech.Usable() {
				return tech
			}
		}
	}
	return Contact{}
}
