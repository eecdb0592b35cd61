package domain

import "fmt"

// ProcessingStatus is the submission state machine. Legal transitions:
// pending -> scoring -> ai_evaluation -> complete, and any state -> error.
type ProcessingStatus string

const (
	StatusPending      ProcessingStatus = "pending"
	StatusScoring      ProcessingStatus = "scoring"
	StatusAIEvaluation ProcessingStatus = "ai_evaluation"
	StatusComplete     ProcessingStatus = "complete"
	StatusError        ProcessingStatus = "error"
)

var statusOrder = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:      {StatusScoring, StatusError},
	StatusScoring:      {StatusAIEvaluation, StatusError},
	StatusAIEvaluation: {StatusComplete, StatusError},
	// A re-score restarts a finished submission from the top, overwriting
	// prior state.
	StatusComplete: {StatusScoring, StatusError},
	StatusError:    {StatusScoring, StatusError},
}

// Valid reports whether s is one of the enumerated statuses.
func (s ProcessingStatus) Valid() bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether moving from s to next is legal.
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	for _, t := range statusOrder[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition validates and returns the next status.
func (s ProcessingStatus) Transition(next ProcessingStatus) (ProcessingStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: status %q cannot move to %q", ErrConflict, s, next)
	}
	return next, nil
}

// Terminal reports whether no further pipeline work is expected.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}
