package domain

// UnknownProcessNumber is the sentinel for files whose process number cannot be resolved.
const UnknownProcessNumber = "UNKNOWN"

// Chunk is a retrieval-sized slice of normalized text.
// Start and End are byte offsets into the normalized source.
type Chunk struct {
	Index    int              `json:"index"`
	Text     string           `json:"text"`
	Start    int              `json:"start"`
	End      int              `json:"end"`
	Metadata DocumentMetadata `json:"metadata"`
}

// ProcessGroup is a set of files that share a process number.
type ProcessGroup struct {
	ProcessNumber string   `json:"process_number"`
	Members       []string `json:"members"`
	MergedText    string   `json:"-"`
}

// Mergeable reports whether the group produces merged output by default.
func (g ProcessGroup) Mergeable() bool {
	return g.ProcessNumber != UnknownProcessNumber && len(g.Members) >= 2
}

// OutcomeStatus is the per-file result inside batch and merge jobs.
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomeFailed  OutcomeStatus = "failed"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// FileOutcome records what happened to one input file.
type FileOutcome struct {
	File          string        `json:"file"`
	Status        OutcomeStatus `json:"status"`
	ProcessNumber string        `json:"process_number,omitempty"`
	Output        string        `json:"output,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// CountOutcomes tallies outcomes by status.
func CountOutcomes(outcomes []FileOutcome) (ok, failed, skipped int) {
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeOK:
			ok++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}
	return ok, failed, skipped
}

// ProcessingInfo describes how a single document was processed.
type ProcessingInfo struct {
	Pages                 int     `json:"pages"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	OriginalFilename      string  `json:"original_filename"`
}

// ImageNote is the outcome of analysing one embedded image.
type ImageNote struct {
	Page        int    `json:"page"`
	Index       int    `json:"index"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}
