package ingest

import "strings"

// RejectCode identifies which ingestion rule a beacon violated.
type RejectCode string

const (
	RejectMissingVisitorIdentity RejectCode = "missing_visitor_identity"
	RejectMissingField           RejectCode = "missing_field"
	RejectPayloadTooLarge        RejectCode = "payload_too_large"
	RejectMalformedJSON          RejectCode = "malformed_json"
	RejectMissingPayloadFields   RejectCode = "missing_payload_fields"
)

// RejectError is a terminal validation failure. It never indicates a store
// problem; store errors pass through the pipeline untyped.
type RejectError struct {
	Code    RejectCode
	Message string
	// Missing lists the absent required payload fields, in declared order.
	// Only set for RejectMissingPayloadFields.
	Missing []string
}

func (e *RejectError) Error() string { return e.Message }

func missingPayloadFields(missing []string) *RejectError {
	return &RejectError{
		Code:    RejectMissingPayloadFields,
		Message: "missing required fields: " + strings.Join(missing, ", "),
		Missing: missing,
	}
}
