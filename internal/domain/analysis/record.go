package analysis

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Record is one structured scan analysis as decoded from the model output.
// The field set is provider-defined (tumor, gray_matter, other_abnormalities,
// recommendations, ...) so it is kept as a free-form object.
type Record map[string]any

// Model output is expected wrapped in a single markdown fence, with or
// without a language tag. One layer only.
var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z0-9]*\n")
	fenceClose = regexp.MustCompile("\n```$")
)

// StripFence removes one layer of code-fence wrapping around the payload.
// Content without fences passes through untouched.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return s
}

// Normalize parses raw model output into a Record. The payload must decode
// as a single JSON object; arrays and scalars are rejected.
func Normalize(raw string) (Record, error) {
	cleaned := StripFence(raw)
	var rec Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelDecode, err)
	}
	// A literal null unmarshals into a nil map without error.
	if rec == nil {
		return nil, fmt.Errorf("%w: payload is null, not an object", ErrModelDecode)
	}
	return rec, nil
}

// ErrorRecord degrades an unparsable response to an explicit error record.
// The raw text is kept verbatim so failures stay diagnosable.
func ErrorRecord(raw string) Record {
	return Record{
		"error":        "Failed to parse the model's response as JSON.",
		"raw_response": raw,
	}
}

// IsError reports whether the record is a degraded error record rather
// than a real analysis. The error/raw_response pair is reserved for
// ErrorRecord; the analysis prompt fixes the schema keys, so a genuine
// analysis never carries both.
func (r Record) IsError() bool {
	_, hasErr := r["error"]
	_, hasRaw := r["raw_response"]
	return hasErr && hasRaw
}

// JSON renders the record as compact JSON, for storage and for embedding
// as grounding context in prompts.
func (r Record) JSON() ([]byte, error) {
	return json.Marshal(r)
}
