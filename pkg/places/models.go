package places

import (
	"encoding/json"
	"fmt"
)

// SearchRequest is one nearby search around a coordinate.
type SearchRequest struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters uint
}

// Result is the body returned by the nearby search endpoint, kept as sent.
// Only the results array is ever modified.
type Result struct {
	fields  map[string]json.RawMessage
	results []json.RawMessage
}

// ParseResult decodes a nearby search body without remodelling its fields.
func ParseResult(body []byte) (*Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode places body: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("places body is not a JSON object")
	}

	r := &Result{fields: fields}
	if raw, ok := fields["results"]; ok {
		if err := json.Unmarshal(raw, &r.results); err != nil {
			return nil, fmt.Errorf("failed to decode places results: %w", err)
		}
	}
	return r, nil
}

// Status returns the status field reported by the endpoint.
func (r *Result) Status() string {
	var status string
	_ = json.Unmarshal(r.fields["status"], &status)
	return status
}

// Len returns the number of results.
func (r *Result) Len() int {
	return len(r.results)
}

// Truncate keeps at most limit results.
func (r *Result) Truncate(limit int) {
	if limit < 0 {
		limit = 0
	}
	if len(r.results) > limit {
		r.results = r.results[:limit]
	}
}

// MarshalJSON writes the body back with the current results.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	if _, ok := r.fields["results"]; ok {
		results := r.results
		if results == nil {
			results = []json.RawMessage{}
		}
		raw, err := json.Marshal(results)
		if err != nil {
			return nil, err
		}
		out["results"] = raw
	}
	return json.Marshal(out)
}
