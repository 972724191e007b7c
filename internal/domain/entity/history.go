package entity

import (
	"time"
)

// StepMetadata carries timing and token accounting for one step.
type StepMetadata struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	InputTokens int       `json:"input_tokens"`
	// BilledInputTokens is the provider's count when the engine reports one.
	BilledInputTokens int `json:"billed_input_tokens,omitempty"`
}

// Duration is the wall time the step took.
func (m StepMetadata) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// StepRecord is one append-only history entry.
type StepRecord struct {
	StepNumber      int            `json:"step_number"`
	Brain           *Brain         `json:"brain,omitempty"`
	ProposedActions []ActionIntent `json:"proposed_actions"`
	Results         []ActionResult `json:"results"`
	State           StateSummary   `json:"state"`
	Metadata        StepMetadata   `json:"metadata"`
}

// LastResult returns the final result of the record.
func (r StepRecord) LastResult() (ActionResult, bool) {
	if len(r.Results) == 0 {
		return ActionResult{}, false
	}
	return r.Results[len(r.Results)-1], true
}

// History is the ordered list of step records of one run. Its order is authoritative
// for completion detection.
type History struct {
	RunID   string       `json:"run_id"`
	Task    string       `json:"task,omitempty"`
	Records []StepRecord `json:"records"`
}

// IsDone reports whether the last result of the last record is a done result.
func (h *History) IsDone() bool {
	if h == nil || len(h.Records) == 0 {
		return false
	}
	last, ok := h.Records[len(h.Records)-1].LastResult()
	return ok && last.IsDone
}

// IsSuccessful reports whether the run finished with a successful done result.
// The second value is false while the run is not done.
func (h *History) IsSuccessful() (bool, bool) {
	if !h.IsDone() {
		return false, false
	}
	last, _ := h.Records[len(h.Records)-1].LastResult()
	return last.Success, true
}

// FinalResult returns the extracted content of the very last result.
func (h *History) FinalResult() string {
	if h == nil || len(h.Records) == 0 {
		return ""
	}
	last, _ := h.Records[len(h.Records)-1].LastResult()
	return last.ExtractedContent
}

// Errors returns the error text of each step, or an empty string for clean steps.
func (h *History) Errors() []string {
	out := make([]string, 0, len(h.Records))
	for _, r := range h.Records {
		msg := ""
		for _, res := range r.Results {
			if res.Error != "" {
				msg = res.Error
				break
			}
		}
		out = append(out, msg)
	}
	return out
}

// HasErrors reports whether any step failed.
func (h *History) HasErrors() bool {
	for _, e := range h.Errors() {
		if e != "" {
			return true
		}
	}
	return false
}

func (h *History) URLs() []string {
	out := make([]string, 0, len(h.Records))
	for _, r := range h.Records {
		out = append(out, r.State.URL)
	}
	return out
}

func (h *History) ActionNames() []string {
	var out []string
	for _, r := range h.Records {
		for _, a := range r.ProposedActions {
			out = append(out, a.Name)
		}
	}
	return out
}

func (h *History) ExtractedContent() []string {
	var out []string
	for _, r := range h.Records {
		for _, res := range r.Results {
			if res.ExtractedContent != "" {
				out = append(out, res.ExtractedContent)
			}
		}
	}
	return out
}

func (h *History) TotalDuration() time.Duration {
	var total time.Duration
	for _, r := range h.Records {
		total += r.Metadata.Duration()
	}
	return total
}

func (h *History) TotalInputTokens() int {
	total := 0
	for _, r := range h.Records {
		total += r.Metadata.InputTokens
	}
	return total
}

func (h *History) NumberOfSteps() int {
	if h == nil {
		return 0
	}
	return len(h.Records)
}
