package forward

import (
	"time"

	"github.com/claraops/callsheet/internal/enrich"
	"github.com/claraops/callsheet/internal/event"
)

// Each webhook variant posts a fixed column set to its sheet; the
// builders below pin those sets. Column names are the sheet scripts'
// contract and must not drift.

// WorkflowRecord is the multi-client dispatcher's record, including the
// workflow columns the automation sheet drives its callback loop with.
func WorkflowRecord(call event.Call, vars map[string]string, tech enrich.Contact) Record {
	return Record{
		"timestamp":            time.Now().Format(time.RFC3339),
		"call_id":              call.ID(),
		"agent_name":           call.AgentName(),
		"duration_ms":          call.DurationMs(),
		"sentiment":            call.Sentiment(),
		"successful":           call.Successful(),
		"call_summary":         firstNonEmpty(vars["callSummary"], call.Summary()),
		"from_number":          vars["fromNumber"],
		"customer_name":        vars["customerName"],
		"service_address":      vars["serviceAddress"],
		"email":                tech.Email,
		"phone":                tech.Phone,
		"is_emergency":         vars["isitEmergency"],
		"emergency_type":       vars["emergencyType"],
		"transcript":           call.Transcript(),
		"make_call":            true,
		"response_call_id_1":   "",
		"response_call_id_2":   "",
		"response_call_id_3":   "",
		"call_decline_counter": 0,
		"last_call_time":       "",
		"is_email_sent":        false,
		"note":                 "",
	}
}

// TransportRecord is the medical-transport variant's record.
func TransportRecord(call event.Call, vars map[string]string) Record {
	record := Record{
		"timestamp":       time.Now().Format(time.RFC3339),
		"call_id":         call.ID(),
		"agent_name":      call.AgentName(),
		"call_duration":   call.DurationMs(),
		"call_cost":       call.CombinedCost(),
		"user_sentiment":  call.Sentiment(),
		"call_successful": call.Successful(),
		"call_summary":    call.Summary(),
	}
	for field, value := range vars {
		record[field] = value
	}
	return record
}

// EmergencyRecord is the fire-protection variant's record. The
// technician's email wins over an extracted one so dispatch always
// reaches the on-call tech.
func EmergencyRecord(call event.Call, vars map[string]string, tech enrich.Contact) Record {
	return Record{
		"timestamp":       time.Now().Format(time.RFC3339),
		"call_id":         call.ID(),
		"agent_name":      call.AgentName(),
		"call_duration":   call.DurationMs(),
		"user_sentiment":  call.Sentiment(),
		"call_successful": call.Successful(),
		"call_summary":    call.Summary(),
		"transcript":      call.Transcript(),
		"fromNumber":      vars["fromNumber"],
		"customerName":    vars["customerName"],
		"serviceAddress":  vars["serviceAddress"],
		"callSummary":     firstNonEmpty(vars["callSummary"], call.Summary()),
		"email":           firstNonEmpty(tech.Email, vars["email"]),
		"phone":           tech.Phone,
		"isitEmergency":   vars["isitEmergency"],
		"emergencyType":   vars["emergencyType"],
	}
}

// RecordingRecord is the EliteFire variant's record, carrying the call
// recording URL alongside the usual columns.
func RecordingRecord(call event.Call, vars map[string]string, tech enrich.Contact) Record {
	return Record{
		"timestamp":       time.Now().Format(time.RFC3339),
		"call_id":         call.ID(),
		"agent_name":      call.AgentName(),
		"call_duration":   call.DurationMs(),
		"call_cost":       call.CombinedCost(),
		"user_sentiment":  call.Sentiment(),
		"call_successful": call.Successful(),
		"call_summary":    call.Summary(),
		"fromNumber":      vars["fromNumber"],
		"customerName":    vars["customerName"],
		"serviceAddress":  vars["serviceAddress"],
		"callSummary":     firstNonEmpty(vars["callSummary"], call.Summary()),
		"email":           firstNonEmpty(tech.Email, vars["email"]),
		"recording_url":   call.RecordingURL(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
