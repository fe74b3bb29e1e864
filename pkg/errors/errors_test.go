package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_WrapsSentinel(t *testing.T) {
	err := Newf(ErrOutputDir, ExitFailure, "creating %s", "out/search")

	assert.True(t, errors.Is(err, ErrOutputDir))
	assert.Equal(t, "output directory unavailable: creating out/search", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "app error wins", err: New(ErrLocked, ExitPartial, "x"), want: ExitPartial},
		{name: "invalid input", err: fmt.Errorf("flag: %w", ErrInvalidInput), want: ExitUsage},
		{name: "locked", err: fmt.Errorf("lock: %w", ErrLocked), want: ExitLocked},
		{name: "stop words", err: ErrStopWords, want: ExitFailure},
		{name: "overflow", err: fmt.Errorf("encode: %w", ErrTrieOverflow), want: ExitInternal},
		{name: "unknown", err: errors.New("boom"), want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
