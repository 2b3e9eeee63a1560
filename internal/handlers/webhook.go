package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/claraops/callsheet/internal/clients"
	"github.com/claraops/callsheet/internal/dedupe"
	"github.com/claraops/callsheet/internal/enrich"
	"github.com/claraops/callsheet/internal/event"
	"github.com/claraops/callsheet/internal/extract"
	"github.com/claraops/callsheet/internal/forward"
)

// EventCallAnalyzed is the only event kind that triggers the pipeline.
// Everything else is acknowledged and ignored.
const EventCallAnalyzed = "call_analyzed"

// Receiver is one webhook variant: a declared field set with its merge
// policy, plus the optional guard and enrichment stages, wired to a
// sheet endpoint. The handler body is identical across variants; only
// this configuration differs.
type Receiver struct {
	Name      string
	Extractor *extract.Extractor

	// Guard suppresses redelivered calls when set.
	Guard *dedupe.Guard

	// Resolver enriches the record with the on-call technician, routed
	// by the CategoryField variable, when set.
	Resolver      *enrich.Resolver
	CategoryField string

	// RequireClient makes the receiver multi-tenant: the client comes
	// from the request (query parameter or trailing path segment) and an
	// absent client ignores the delivery.
	RequireClient bool
	Registry      clients.Registry

	// SheetURL is the fixed endpoint for single-tenant receivers.
	SheetURL string

	// Finalize applies variant-specific defaults after extraction.
	Finalize func(call event.Call, vars map[string]string)

	// BuildRecord produces the variant's normalized record.
	BuildRecord func(call event.Call, vars map[string]string, tech enrich.Contact) forward.Record

	// IncludeMetadata adds call metadata and tech data to the success
	// response body.
	IncludeMetadata bool

	Forwarder *forward.Forwarder
}

// Handle processes one webhook delivery: parse → filter by event kind →
// duplicate check → extract → enrich → forward → respond. Requests are
// isolated; nothing here can take the process down (the recovery middleware covers
// the rest).
func (r *Receiver) Handle(c *gin.Context) {
	var payload event.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	call := payload.Call
	if call == nil {
		call = event.Call{}
	}
	callID := call.ID()
	deliveryID := uuid.New().String()

	log.Printf("[webhook] %s: event=%s call=%s delivery=%s", r.Name, payload.Event, callID, deliveryID)

	if payload.Event != EventCallAnalyzed {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ignored",
			"message": fmt.Sprintf("Event type '%s' not processed", payload.Event),
			"call_id": callID,
		})
		return
	}

	sheetURL := r.SheetURL
	if r.RequireClient {
		client := clients.ClientID(c)
		if client == "" {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ignored",
				"message": "No client specified",
				"call_id": callID,
			})
			return
		}
		sheetURL = r.Registry.URL(client)
	}

	ctx := c.Request.Context()

	if r.Guard != nil && r.Guard.IsDuplicate(ctx, call) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "skipped",
			"message": "Duplicate call ignored",
			"call_id": callID,
		})
		return
	}

	result := r.Extractor.Extract(call)
	vars := result.Values
	if r.Finalize != nil {
		r.Finalize(call, vars)
	}
	log.Printf("[webhook] %s: call=%s extracted via %s", r.Name, callID, result.Source)

	var tech enrich.Contact
	if r.Resolver != nil {
		resolved := r.Resolver.Resolve(ctx, vars[r.CategoryField])
		tech = resolved.Contact
		log.Printf("[webhook] %s: call=%s tech source=%s", r.Name, callID, resolved.Source)
	}

	status := r.Forwarder.Forward(ctx, sheetURL, r.BuildRecord(call, vars, tech))
	if !status.OK() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to forward call record",
			"call_id": callID,
		})
		return
	}

	body := gin.H{
		"status":              "success",
		"message":             "Call record forwarded",
		"call_id":             callID,
		"delivery_id":         deliveryID,
		"extracted_variables": vars,
	}
	if r.IncludeMetadata {
		body["tech_data"] = tech
		body["call_metadata"] = gin.H{
			"agent_name":      call.AgentName(),
			"duration_ms":     call.DurationMs(),
			"user_sentiment":  call.Sentiment(),
			"call_successful": call.Successful(),
		}
	}
	c.JSON(http.StatusOK, body)
}
