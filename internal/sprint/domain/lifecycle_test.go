package domain

import (
	"testing"
	"time"

	"github.com/smallbiznis/sprintboard/pkg/apperr"
	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC)
	planned := Sprint{Status: StatusPlanned, StartDate: start, EndDate: end}
	active := Sprint{Status: StatusActive, StartDate: start, EndDate: end}
	completed := Sprint{Status: StatusCompleted, StartDate: start, EndDate: end}
	inside := start.Add(48 * time.Hour)

	cases := []struct {
		name   string
		sprint Sprint
		target string
		now    time.Time
		want   error
	}{
		{"start inside window", planned, StatusActive, inside, nil},
		{"start at window start", planned, StatusActive, start, nil},
		{"start at window end", planned, StatusActive, end, nil},
		{"start before window", planned, StatusActive, start.Add(-time.Second), ErrOutsideWindow},
		{"start after window", planned, StatusActive, end.Add(time.Second), ErrOutsideWindow},
		{"lower-case target", planned, "active", inside, nil},
		{"complete active", active, StatusCompleted, inside, nil},
		{"complete planned", planned, StatusCompleted, inside, ErrNotActive},
		{"complete completed", completed, StatusCompleted, inside, ErrNotActive},
		{"restart active", active, StatusActive, inside, ErrIllegalTransition},
		{"reopen completed", completed, StatusActive, inside, ErrIllegalTransition},
		{"back to planned", active, StatusPlanned, inside, ErrInvalidTarget},
		{"unknown target", planned, "ARCHIVED", inside, ErrInvalidTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sprint.Transition(tc.target, tc.now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTransitionErrorKinds(t *testing.T) {
	now := time.Now()
	planned := Sprint{Status: StatusPlanned, StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour)}

	assert.ErrorIs(t, planned.Transition(StatusActive, now), apperr.ErrInvalidState)
	assert.ErrorIs(t, planned.Transition(StatusCompleted, now), apperr.ErrInvalidState)
	assert.ErrorIs(t, planned.Transition("DONE", now), apperr.ErrValidation)
}

func TestReorderable(t *testing.T) {
	assert.False(t, Sprint{Status: StatusPlanned}.Reorderable())
	assert.True(t, Sprint{Status: StatusActive}.Reorderable())
	assert.False(t, Sprint{Status: StatusCompleted}.Reorderable())
}
