package entity

// ActionIntent is one abstract operation proposed by the decision engine.
type ActionIntent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// ActionResult is the immutable outcome of one executed action.
type ActionResult struct {
	IsDone           bool   `json:"is_done"`
	Success          bool   `json:"success"`
	ExtractedContent string `json:"extracted_content,omitempty"`
	Error            string `json:"error,omitempty"`
	IncludeInMemory  bool   `json:"include_in_memory"`
}

// Failed reports whether the result carries an error.
func (r ActionResult) Failed() bool {
	return r.Error != ""
}

// ContentResult is a successful, not-done result carrying extracted content.
func ContentResult(content string) ActionResult {
	return ActionResult{Success: true, ExtractedContent: content, IncludeInMemory: true}
}

// ErrorResult is a failed result carrying the error text.
func ErrorResult(msg string) ActionResult {
	return ActionResult{Error: msg, IncludeInMemory: true}
}

// Brain is the decision engine's self-assessment for the step.
type Brain struct {
	EvaluationPreviousGoal string `json:"evaluation_previous_goal"`
	Memory                 string `json:"memory"`
	NextGoal               string `json:"next_goal"`
}

// Decision is one parsed decision-engine response.
type Decision struct {
	Brain   Brain          `json:"brain"`
	Actions []ActionIntent `json:"actions"`
}
