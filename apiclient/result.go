package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Result is a successful outcome. Exactly one of Payload and Raw is set: Raw
// carries a response whose body was not JSON, with the body still readable.
type Result struct {
	StatusCode int
	Header     http.Header
	Payload    json.RawMessage
	Raw        *http.Response
	RequestID  string
}

func (r *Result) IsRaw() bool {
	return r.Raw != nil
}

func (r *Result) Decode(v any) error {
	if r.IsRaw() {
		return ErrRawResponse
	}

	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}

	return nil
}
