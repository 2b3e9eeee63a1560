package handlers

import (
	"github.com/claraops/callsheet/internal/clients"
	"github.com/claraops/callsheet/internal/config"
	"github.com/claraops/callsheet/internal/dedupe"
	"github.com/claraops/callsheet/internal/enrich"
	"github.com/claraops/callsheet/internal/event"
	"github.com/claraops/callsheet/internal/extract"
	"github.com/claraops/callsheet/internal/forward"
)

// Declared field sets per variant. These are the sheet column contracts;
// extraction returns exactly these keys, no more, no fewer.
var (
	emergencyFields = []string{
		"fromNumber", "customerName", "serviceAddress", "callSummary",
		"email", "isitEmergency", "emergencyType",
	}

	transportFields = []string{
		"firstName", "lastName", "email", "description", "facilityName",
		"doctorName", "facilitynumber", "pickupLoc", "dropLocation",
		"appointmentDate", "tripdetails",
	}

	eliteFireFields = []string{
		"fromNumber", "customerName", "serviceAddress", "callSummary", "email",
	}
)

// dispatchAliases lists the alternate custom_analysis_data keys older
// agent configurations used for the dispatcher's fields.
var dispatchAliases = map[string][]string{
	"fromNumber":     {"caller_phone"},
	"customerName":   {"caller_name"},
	"serviceAddress": {"caller_address"},
	"callSummary":    {"issue_description"},
	"isitEmergency":  {"isEmergency"},
	"emergencyType":  {"emergency_type"},
}

// Dispatch is the multi-client receiver: field-by-field merge extraction
// with alias fallbacks, HVAC/Plumbing technician enrichment, and the
// workflow-column record.
func Dispatch(cfg config.Config, fwd *forward.Forwarder) *Receiver {
	resolver := enrich.NewResolver(
		enrich.Endpoint{Name: "hvac", URL: cfg.HVACAPIURL},
		enrich.Endpoint{Name: "plumbing", URL: cfg.PlumbingAPIURL},
		map[string]string{"Plumbing": "plumbing"},
		cfg.FallbackTech,
	)

	return &Receiver{
		Name: "dispatch",
		Extractor: &extract.Extractor{
			Fields:  emergencyFields,
			Policy:  extract.PolicyFieldMerge,
			Aliases: dispatchAliases,
		},
		Resolver:      resolver,
		CategoryField: "emergencyType",
		RequireClient: true,
		Registry:      clients.Registry(cfg.SheetURLs),
		Finalize: func(call event.Call, vars map[string]string) {
			if vars["callSummary"] == "" {
				vars["callSummary"] = call.Summary()
			}
			if vars["fromNumber"] == "" {
				vars["fromNumber"] = call.FromNumber()
			}
			vars["isitEmergency"] = extract.NormalizeFlag(vars["isitEmergency"])
		},
		BuildRecord: forward.WorkflowRecord,
		Forwarder:   fwd,
	}
}

// Transport is the medical-transport receiver: all-or-nothing extraction
// of the booking fields, no enrichment, no duplicate guard.
func Transport(cfg config.Config, fwd *forward.Forwarder) *Receiver {
	return &Receiver{
		Name:      "transport",
		Extractor: &extract.Extractor{Fields: transportFields},
		SheetURL:  cfg.TransportSheetURL,
		BuildRecord: func(call event.Call, vars map[string]string, _ enrich.Contact) forward.Record {
			return forward.TransportRecord(call, vars)
		},
		Forwarder: fwd,
	}
}

// FireProtection is the fire-protection receiver: duplicate-guarded,
// with Sprinkler/Fire-Alarm technician enrichment routed by the
// extracted emergency type.
func FireProtection(cfg config.Config, fwd *forward.Forwarder, guard *dedupe.Guard) *Receiver {
	resolver := enrich.NewResolver(
		enrich.Endpoint{Name: "fire_alarm", URL: cfg.FireAlarmAPIURL},
		enrich.Endpoint{Name: "sprinkler", URL: cfg.SprinklerAPIURL},
		map[string]string{"Sprinkler": "sprinkler", "Fire Alarm": "fire_alarm"},
		cfg.FallbackTech,
	)

	return &Receiver{
		Name:            "fireprotection",
		Extractor:       &extract.Extractor{Fields: emergencyFields},
		Guard:           guard,
		Resolver:        resolver,
		CategoryField:   "emergencyType",
		SheetURL:        cfg.FireProtectionSheetURL,
		BuildRecord:     forward.EmergencyRecord,
		IncludeMetadata: true,
		Forwarder:       fwd,
	}
}

// EliteFire is the recording receiver: single-endpoint email enrichment
// and a record carrying the call recording URL.
func EliteFire(cfg config.Config, fwd *forward.Forwarder) *Receiver {
	resolver := enrich.NewResolver(
		enrich.Endpoint{Name: "elitefire", URL: cfg.EliteFireAPIURL},
		enrich.Endpoint{},
		nil,
		enrich.Contact{},
	)

	return &Receiver{
		Name:          "elitefire",
		Extractor:     &extract.Extractor{Fields: eliteFireFields},
		Resolver:      resolver,
		CategoryField: "emergencyType",
		SheetURL:      cfg.EliteFireSheetURL,
		BuildRecord:   forward.RecordingRecord,
		Forwarder:     fwd,
	}
}
