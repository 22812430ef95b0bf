package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"device lost", ErrDeviceLost, true},
		{"wrapped timeout", fmt.Errorf("frame 3 in-flight fence: %w", ErrSynchronizationTimeout), true},
		{"submission", fmt.Errorf("present: %w", ErrSubmission), true},
		{"resource creation", ErrResourceCreation, true},
		{"out of date", ErrSwapchainOutOfDate, true},
		{"pool exhausted", ErrPoolExhausted, false},
		{"capacity", fmt.Errorf("staging: %w", ErrCapacityExceeded), false},
		{"stale handle", ErrStaleHandle, false},
		{"frame state", ErrFrameState, false},
		{"unrelated", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}
