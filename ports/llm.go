package ports

import "context"

// EvidenceAttachment is a transport-ready piece of evidence. Binary files
// carry a base64 data URL; documents that went through text extraction carry
// plain text instead. Exactly one of DataURL and Text is set.
type EvidenceAttachment struct {
	Name     string
	MimeType string
	DataURL  string
	Text     string
}

// ControlRequest is one batched evaluation request: every design-element
// prompt of a single control plus the evidence backing them.
type ControlRequest struct {
	ControlID    string
	SystemPrompt string
	Prompts      []string
	Attachments  []EvidenceAttachment
}

// LLMClient is the boundary to the model. EvaluateControl returns one raw
// answer string per prompt, correlated positionally. Retry policy, if any,
// belongs to the implementing adapter's transport, not to callers.
type LLMClient interface {
	EvaluateControl(ctx context.Context, req ControlRequest) ([]string, error)
}
