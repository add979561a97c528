package services_test

import (
	"testing"

	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_HappyPath(t *testing.T) {
	state, err := services.Transition(services.GenerationState{}, services.EventRequestCreated)
	require.NoError(t, err)
	assert.Equal(t, services.GenerationState{Status: models.GenerationStatusProcessing, Progress: 0}, state)

	steps := []struct {
		event    services.GenerationEvent
		status   models.GenerationStatus
		progress int
	}{
		{services.EventProviderAccepted, models.GenerationStatusProcessing, 10},
		{services.EventProviderReturned, models.GenerationStatusProcessing, 80},
		{services.EventCompositingAttempted, models.GenerationStatusCompleted, 100},
	}
	for _, step := range steps {
		state, err = services.Transition(state, step.event)
		require.NoError(t, err, step.event)
		assert.Equal(t, step.status, state.Status)
		assert.Equal(t, step.progress, state.Progress)
	}
}

func TestTransition_PendingCanStart(t *testing.T) {
	state, err := services.Transition(services.GenerationState{Status: models.GenerationStatusPending}, services.EventRequestCreated)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusProcessing, state.Status)
}

func TestTransition_ProgressNeverDecreases(t *testing.T) {
	state, err := services.Transition(services.GenerationState{Status: models.GenerationStatusProcessing, Progress: 80}, services.EventProviderAccepted)
	require.NoError(t, err)
	assert.Equal(t, 80, state.Progress)
}

func TestTransition_FailureKeepsProgress(t *testing.T) {
	state, err := services.Transition(services.GenerationState{Status: models.GenerationStatusProcessing, Progress: 10}, services.EventStepFailed)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, state.Status)
	assert.Equal(t, 10, state.Progress)
}

func TestTransition_Cancel(t *testing.T) {
	for _, from := range []models.GenerationStatus{models.GenerationStatusPending, models.GenerationStatusProcessing} {
		state, err := services.Transition(services.GenerationState{Status: from, Progress: 10}, services.EventCancelRequested)
		require.NoError(t, err, from)
		assert.Equal(t, models.GenerationStatusCancelled, state.Status)
		assert.Equal(t, 10, state.Progress)
	}
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	events := []services.GenerationEvent{
		services.EventRequestCreated,
		services.EventProviderAccepted,
		services.EventProviderReturned,
		services.EventCompositingAttempted,
		services.EventStepFailed,
		services.EventCancelRequested,
	}
	for _, status := range models.TerminalGenerationStatuses {
		from := services.GenerationState{Status: status, Progress: 42}
		for _, ev := range events {
			next, err := services.Transition(from, ev)
			assert.ErrorIs(t, err, services.ErrInvalidTransition, "%s on %s", ev, status)
			assert.Equal(t, from, next)
		}
	}
}

func TestTransition_ProviderEventsNeedProcessing(t *testing.T) {
	_, err := services.Transition(services.GenerationState{Status: models.GenerationStatusPending}, services.EventProviderReturned)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = services.Transition(services.GenerationState{Status: models.GenerationStatusProcessing}, services.EventRequestCreated)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}
