// Package classifier maps raw chat responses from the analysis backend to
// structured status outcomes. The backend's completion signal is embedded in
// free-form text rather than a discrete event, so classification is layered:
// a structured JSON status is tried first, then increasingly fuzzy phrase
// matching. Rules are evaluated in a fixed order and the first match wins.
package classifier

import (
	"encoding/json"
	"strings"
)

// Outcome is the classification of a single chat exchange.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeError             Outcome = "error"
	OutcomeInProgress        Outcome = "in_progress"
	OutcomeHealthCheck       Outcome = "health_check"
	OutcomeHealthCheckFailed Outcome = "health_check_failed"
	OutcomeUnknown           Outcome = "unknown"
)

// Session status values derived from classified responses.
const (
	StatusCloning   = "cloning"
	StatusParsing   = "parsing"
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Result is what a single classification produces. The classifier itself is
// pure: status mutation, activity logging and completion scheduling are the
// caller's job.
type Result struct {
	Outcome Outcome

	// Status is the coarse session status this response implies, empty when
	// the response does not justify a transition.
	Status string

	// LogLabel is the canonical short label to append to the activity log.
	// Empty means nothing should be logged (suppressed health checks, or a
	// label identical to the immediately preceding one).
	LogLabel string

	// ScheduleCompletion reports that the completion routine should run
	// after the debounce delay.
	ScheduleCompletion bool
}

type input struct {
	raw        string // original trimmed response
	text       string // lowercased form used for phrase matching
	lastLogged string // label of the immediately preceding log entry
}

type rule struct {
	name  string
	apply func(in input) (Result, bool)
}

// rules is the prioritized rule list. Order is load-bearing: structured
// status first, then health-check suppression, completion, progress, error,
// and the deduplicated unknown fallback last.
var rules = []rule{
	{name: "structured-status", apply: matchStructuredStatus},
	{name: "health-check", apply: matchHealthCheck},
	{name: "completion-phrase", apply: matchCompletionPhrase},
	{name: "progress-phrase", apply: matchProgressPhrase},
	{name: "error-phrase", apply: matchErrorPhrase},
	{name: "fallback", apply: matchFallback},
}

// Classify runs the raw response through the rule list. lastLogged is the
// label of the most recent activity log entry and is used to suppress
// consecutive duplicates; passing it explicitly keeps the classifier free of
// hidden state.
func Classify(raw, lastLogged string) Result {
	in := input{
		raw:        strings.TrimSpace(raw),
		lastLogged: lastLogged,
	}
	in.text = strings.ToLower(in.raw)

	for _, r := range rules {
		if res, ok := r.apply(in); ok {
			return res
		}
	}

	// The fallback rule always matches; this is unreachable.
	return Result{Outcome: OutcomeUnknown}
}

type statusPayload struct {
	Status string `json:"status"`
}

func matchStructuredStatus(in input) (Result, bool) {
	var payload statusPayload
	if err := json.Unmarshal([]byte(in.raw), &payload); err != nil {
		// Not JSON; fall through to the text heuristics.
		return Result{}, false
	}

	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "completed", "finished":
		return Result{
			Outcome:            OutcomeCompleted,
			Status:             StatusCompleted,
			LogLabel:           "analysis complete",
			ScheduleCompletion: true,
		}, true
	case "error", "failed":
		return Result{
			Outcome:  OutcomeError,
			Status:   StatusError,
			LogLabel: "analysis failed",
		}, true
	case "processing", "in_progress", "analyzing":
		return Result{
			Outcome:  OutcomeInProgress,
			Status:   StatusAnalyzing,
			LogLabel: dedup("analyzing code", in.lastLogged),
		}, true
	}
	return Result{}, false
}

var healthFailureCues = []string{"fail", "error", "unhealthy", "down"}

func matchHealthCheck(in input) (Result, bool) {
	if !strings.Contains(in.text, "health check") && !strings.Contains(in.text, "healthcheck") {
		return Result{}, false
	}
	if containsAny(in.text, healthFailureCues) {
		return Result{
			Outcome:  OutcomeHealthCheckFailed,
			LogLabel: "health check failed",
		}, true
	}
	// Passing health checks are deliberately kept out of the activity log.
	return Result{Outcome: OutcomeHealthCheck}, true
}

var completionPhrases = []string{
	"embeddings stored",
	"embeddings have been stored",
	"stored embeddings",
	"you can now ask questions",
	"can now ask questions",
	"ready for questions",
	"analysis complete",
	"analysis is complete",
	"analysis finished",
	"analysis has finished",
	"successfully analyzed",
}

func matchCompletionPhrase(in input) (Result, bool) {
	if !containsAny(in.text, completionPhrases) {
		return Result{}, false
	}
	return Result{
		Outcome:            OutcomeCompleted,
		Status:             StatusCompleted,
		LogLabel:           "analysis complete",
		ScheduleCompletion: true,
	}, true
}

var progressLabels = []struct {
	keyword string
	label   string
	status  string
}{
	{keyword: "cloning", label: "cloning repository", status: StatusCloning},
	{keyword: "parsing", label: "parsing code", status: StatusParsing},
	{keyword: "analyzing", label: "analyzing code", status: StatusAnalyzing},
	{keyword: "embedding", label: "generating embeddings", status: StatusAnalyzing},
	{keyword: "files processed", label: "processing files", status: StatusAnalyzing},
	{keyword: "processing", label: "processing", status: StatusAnalyzing},
}

// Some backend replies pair a completion cue with a "may take a few minutes"
// estimate, which would otherwise read as progress. The estimate loses.
var minutesPhrases = []string{"may take", "might take", "can take", "minutes"}
var lateCompletionCues = []string{"ask questions", "ask me anything", "ask about the code"}

func matchProgressPhrase(in input) (Result, bool) {
	for _, p := range progressLabels {
		if !strings.Contains(in.text, p.keyword) {
			continue
		}
		if containsAny(in.text, minutesPhrases) && containsAny(in.text, lateCompletionCues) {
			return Result{
				Outcome:            OutcomeCompleted,
				Status:             StatusCompleted,
				LogLabel:           "analysis complete",
				ScheduleCompletion: true,
			}, true
		}
		return Result{
			Outcome:  OutcomeInProgress,
			Status:   p.status,
			LogLabel: dedup(p.label, in.lastLogged),
		}, true
	}
	return Result{}, false
}

var errorCues = []string{"error", "failed", "failure", "cannot", "unable to"}

func matchErrorPhrase(in input) (Result, bool) {
	if !containsAny(in.text, errorCues) {
		return Result{}, false
	}
	return Result{
		Outcome:  OutcomeError,
		Status:   StatusError,
		LogLabel: errorLabel(in.text),
	}, true
}

func errorLabel(text string) string {
	switch {
	case strings.Contains(text, "access denied") || strings.Contains(text, "permission denied") || strings.Contains(text, "forbidden"):
		return "repository access denied"
	case strings.Contains(text, "clone"):
		return "failed to clone repository"
	case strings.Contains(text, "timed out") || strings.Contains(text, "timeout"):
		return "analysis timed out"
	default:
		return "analysis failed"
	}
}

func matchFallback(in input) (Result, bool) {
	return Result{
		Outcome:  OutcomeUnknown,
		LogLabel: dedup("analysis in progress", in.lastLogged),
	}, true
}

// dedup blanks a label that matches the immediately preceding log entry so
// repeated progress messages produce a single activity entry.
func dedup(label, lastLogged string) string {
	if label == lastLogged {
		return ""
	}
	return label
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
