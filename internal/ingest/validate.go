package ingest

// Required payload fields, in the order rejection messages report them.
var requiredFields = []string{"eventType", "timestamp", "currentURL"}

// Canonical is a beacon that passed validation: the string form to persist
// and hash, plus the extracted columns.
type Canonical struct {
	Data           string
	EventType      string
	CurrentURL     string
	Referrer       *string
	TimeOnPage     int64
	EventTimestamp string
}

// Validate applies the ingestion rules in order, short-circuiting on the
// first failure: presence of project id and data, canonical size against
// maxBytes, JSON syntax for raw strings, then the required payload fields.
// It is pure; nothing here touches the store.
func Validate(projectID string, data Payload, maxBytes int) (*Canonical, *RejectError) {
	if projectID == "" || !data.Present() {
		return nil, &RejectError{
			Code:    RejectMissingField,
			Message: "project_id and data are required",
		}
	}

	canonical, err := data.canonicalString()
	if err != nil {
		return nil, &RejectError{
			Code:    RejectMalformedJSON,
			Message: "data is not serializable as JSON: " + err.Error(),
		}
	}
	if len(canonical) > maxBytes {
		return nil, &RejectError{
			Code:    RejectPayloadTooLarge,
			Message: "payload exceeds size limit",
		}
	}

	fields, isObject, err := data.parsed()
	if err != nil {
		return nil, &RejectError{
			Code:    RejectMalformedJSON,
			Message: "data is not valid JSON: " + err.Error(),
		}
	}
	if !isObject {
		// Parses but is not an object, so every required field is absent.
		return nil, missingPayloadFields(requiredFields)
	}

	var missing []string
	for _, f := range requiredFields {
		if !fieldPresent(fields[f]) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, missingPayloadFields(missing)
	}

	return &Canonical{
		Data:           canonical,
		EventType:      coerceString(fields["eventType"]),
		CurrentURL:     coerceString(fields["currentURL"]),
		Referrer:       optionalString(fields["referrer"]),
		TimeOnPage:     timeOnPage(fields["timeOnPage"]),
		EventTimestamp: coerceString(fields["timestamp"]),
	}, nil
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// timeOnPage defaults to 0 when absent or non-numeric and clamps negatives,
// since the column is declared non-negative.
func timeOnPage(v any) int64 {
	f, ok := v.(float64)
	if !ok || f < 0 {
		return 0
	}
	return int64(f)
}
