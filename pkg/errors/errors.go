package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrStopWords    = errors.New("stop words unavailable")
	ErrOutputDir    = errors.New("output directory unavailable")
	ErrLocked       = errors.New("output is locked by another run")
	ErrEmptyWord    = errors.New("empty word")
	ErrTrieOverflow = errors.New("too many trie nodes to encode")
	ErrCorruptTrie  = errors.New("corrupt trie data")
	ErrInternal     = errors.New("internal error")
)

// Exit codes returned by the docindex command.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitLocked   = 3
	ExitPartial  = 4
	ExitInternal = 70
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrLocked):
		return ExitLocked
	case errors.Is(err, ErrStopWords), errors.Is(err, ErrOutputDir):
		return ExitFailure
	case errors.Is(err, ErrTrieOverflow), errors.Is(err, ErrCorruptTrie), errors.Is(err, ErrInternal):
		return ExitInternal
	default:
		return ExitFailure
	}
}
