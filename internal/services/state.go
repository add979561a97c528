package services

import (
	"errors"
	"fmt"

	"design-lab-backend/internal/models"
)

// GenerationEvent drives a generation request through its lifecycle.
type GenerationEvent string

const (
	EventRequestCreated       GenerationEvent = "request_created"
	EventProviderAccepted     GenerationEvent = "provider_accepted"
	EventProviderReturned     GenerationEvent = "provider_returned"
	EventCompositingAttempted GenerationEvent = "compositing_attempted"
	EventStepFailed           GenerationEvent = "step_failed"
	EventCancelRequested      GenerationEvent = "cancel_requested"
)

const (
	ProgressAccepted  = 10
	ProgressGenerated = 80
	ProgressCompleted = 100
)

var ErrInvalidTransition = errors.New("invalid generation transition")

// GenerationState is the status/progress pair persisted on a request.
type GenerationState struct {
	Status   models.GenerationStatus
	Progress int
}

// Transition is the pure state machine of a generation request:
//
//	(none)|pending --created--> processing(0)
//	processing --accepted--> processing(10)
//	processing --returned--> processing(80)
//	processing --compositing attempted--> completed(100)
//	pending|processing --failed--> failed
//	pending|processing --cancel--> cancelled
//
// Terminal states reject every event. Progress never decreases.
func Transition(from GenerationState, ev GenerationEvent) (GenerationState, error) {
	if from.Status.IsTerminal() {
		return from, fmt.Errorf("%w: %s from terminal status %s", ErrInvalidTransition, ev, from.Status)
	}

	active := from.Status == models.GenerationStatusPending || from.Status == models.GenerationStatusProcessing

	switch ev {
	case EventRequestCreated:
		if from.Status != "" && from.Status != models.GenerationStatusPending {
			break
		}
		return GenerationState{Status: models.GenerationStatusProcessing, Progress: from.Progress}, nil
	case EventProviderAccepted:
		if from.Status != models.GenerationStatusProcessing {
			break
		}
		return GenerationState{Status: models.GenerationStatusProcessing, Progress: max(from.Progress, ProgressAccepted)}, nil
	case EventProviderReturned:
		if from.Status != models.GenerationStatusProcessing {
			break
		}
		return GenerationState{Status: models.GenerationStatusProcessing, Progress: max(from.Progress, ProgressGenerated)}, nil
	case EventCompositingAttempted:
		if from.Status != models.GenerationStatusProcessing {
			break
		}
		return GenerationState{Status: models.GenerationStatusCompleted, Progress: ProgressCompleted}, nil
	case EventStepFailed:
		if !active {
			break
		}
		return GenerationState{Status: models.GenerationStatusFailed, Progress: from.Progress}, nil
	case EventCancelRequested:
		if !active {
			break
		}
		return GenerationState{Status: models.GenerationStatusCancelled, Progress: from.Progress}, nil
	}

	return from, fmt.Errorf("%w: %s from status %q", ErrInvalidTransition, ev, from.Status)
}
