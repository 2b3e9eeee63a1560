package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/claraops/callsheet/internal/clients"
)

// StatusHandler answers GET on a webhook path with the variant's static
// status document, mirroring what each receiver accepts.
func StatusHandler(r *Receiver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":        "Call analysis webhook: " + r.Name,
			"status":         "healthy",
			"variables":      r.Extractor.Fields,
			"accepted_event": EventCallAnalyzed,
		})
	}
}

// OverviewHandler answers GET / with the service overview document.
func OverviewHandler(registry clients.Registry) gin.HandlerFunc {
	names := registry.Names()
	sort.Strings(names)

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "CLARA lead capture webhook relay",
			"purpose": "Processes call analysis events and sends normalized records into company-specific sheet automations.",
			"status":  "healthy",
			"event_handling": gin.H{
				"accepted_event":    EventCallAnalyzed,
				"request_type":      "JSON webhook payload",
				"response_behavior": "Returns success when the payload is processed or safely skipped.",
			},
			"usage":   "POST /webhooks/dispatch?client=<name> or POST /webhooks/dispatch/<name>",
			"clients": names,
			"receivers": []string{
				"/webhooks/dispatch", "/webhooks/transport",
				"/webhooks/fireprotection", "/webhooks/elitefire",
			},
		})
	}
}
