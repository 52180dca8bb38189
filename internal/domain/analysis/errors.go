package analysis

import "errors"

var (
	// ErrModelDecode indicates model output was not a valid JSON object.
	// A soft failure: the pipeline stores a degraded error record instead.
	ErrModelDecode = errors.New("model response is not valid JSON")

	// ErrStorageUnavailable indicates a credential or connectivity failure
	// against object storage, as opposed to a valid empty result.
	ErrStorageUnavailable = errors.New("artifact storage unavailable")

	// ErrNoContext indicates no prior analysis exists to ground a chat on.
	ErrNoContext = errors.New("no analysis context available")
)
