package assessment

// EvidenceFile is the single in-memory representation of a piece of vendor
// evidence. Base64 encoding happens only at the LLM transport boundary.
type EvidenceFile struct {
	Name      string
	MimeType  string
	SizeBytes int
	Content   []byte
}

// FolderGroup is the raw decomposition unit: one evidence subfolder and the
// files found anywhere beneath it. Produced by the archive decomposer before
// any taxonomy mapping has happened.
type FolderGroup struct {
	FolderName string
	Files      []EvidenceFile
}

// QuestionnaireFile is the optional root-level spreadsheet identifying which
// controls apply to the engagement. At most one per archive.
type QuestionnaireFile struct {
	Name    string
	Content []byte
}

// ControlEvidenceGroup is a subfolder reconciled against the domain registry.
// One folder of evidence may satisfy several controls, hence DomainIDs.
type ControlEvidenceGroup struct {
	ControlID   string
	ControlName string
	DomainIDs   []string
	Evidence    []EvidenceFile
}

// DesignElementPrompt is one atomic, individually answerable question derived
// from a control's description.
type DesignElementPrompt struct {
	DomainID     string
	ElementIndex string
	Question     string
	FullPrompt   string
	Label        string
}

// ControlTask is the unit of work the evaluation engine processes: one
// control's prompts together with the evidence backing them.
type ControlTask struct {
	ControlID string
	Prompts   []DesignElementPrompt
	Evidence  []EvidenceFile
}

// ResultStatus marks whether an LLM round-trip produced an answer
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// EvaluationResult is the per-(control, design element) outcome of the LLM
// pass. A round-trip that never returned is synthesized as an error result;
// results are never silently dropped.
type EvaluationResult struct {
	ControlID       string
	DesignElementID string
	Status          ResultStatus
	RawAnswer       string
	ErrorDetail     string
}

// ReportRow is the final durable output unit. Exactly one row exists per
// DesignElementPrompt regardless of upstream failures; sentinel values fill
// rows whose answers were missing or unparseable.
type ReportRow struct {
	ID              string `json:"id"`
	ControlID       string `json:"controlId"`
	DesignElementID string `json:"designElementId"`
	Status          string `json:"status"`
	AnswerQuality   string `json:"Answer_Quality"`
	Answer          string `json:"Answer"`
	Question        string `json:"Question"`
	SubQuestion     string `json:"SubQuestion"`
	MainQuestion    string `json:"MainQuestion"`
	AnswerSource    string `json:"Answer_Source"`
	Summary         string `json:"Summary"`
	Reference       string `json:"Reference"`
}

// BatchStatus describes where a batch is in its lifecycle
type BatchStatus string

const (
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

// Progress is the event emitted to the orchestrator's callback once at batch
// start and after every completed control.
type Progress struct {
	TotalControls     int                `json:"totalControls"`
	CompletedControls int                `json:"completedControls"`
	CurrentControl    string             `json:"currentControl"`
	Status            BatchStatus        `json:"status"`
	Results           []EvaluationResult `json:"-"`
	Errors            []string           `json:"errors"`
}
