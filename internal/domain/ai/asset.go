package ai

// AssetState is the provider-side processing state of uploaded media.
type AssetState string

const (
	StateProcessing AssetState = "processing"
	StateActive     AssetState = "active"
	StateFailed     AssetState = "failed"
)

// Asset is an opaque handle to media held by the inference provider. The
// bytes live provider-side; the handle is discarded once consumed.
type Asset struct {
	ID       string
	State    AssetState
	MIMEType string
}
