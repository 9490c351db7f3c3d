package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("listing wanted::1: %w", ErrNotFound), KindNotFound},
		{"duplicate", fmt.Errorf("%w: url", ErrDuplicateEntity), KindDuplicate},
		{"validation", fmt.Errorf("%w: missing title", ErrInvalidInput), KindValidation},
		{"unknown command", ErrUnknownCommand, KindValidation},
		{"transient", fmt.Errorf("%w: timeout", ErrTransient), KindTransient},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), KindTransient},
		{"other", fmt.Errorf("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsSkippable(t *testing.T) {
	assert.True(t, IsSkippable(ErrDuplicateEntity))
	assert.True(t, IsSkippable(fmt.Errorf("%w: no url", ErrInvalidInput)))
	assert.False(t, IsSkippable(ErrTransient))
	assert.False(t, IsSkippable(ErrNotFound))
	assert.False(t, IsSkippable(nil))
}
