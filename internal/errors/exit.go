package errors

import (
	stderrors "errors"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitNoData  = 3
)

// ExitCode maps an error to the process exit code of the export command
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return ExitFailure
	}

	switch appErr.Type {
	case ErrTypeUsage, ErrTypeInvalidArgument:
		return ExitUsage
	case ErrTypeNoData:
		return ExitNoData
	default:
		return ExitFailure
	}
}
