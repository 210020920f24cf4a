package cli

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/roach88/datalib/internal/expr"
	"github.com/roach88/datalib/internal/pipeline"
	"github.com/roach88/datalib/internal/store"
	"github.com/roach88/datalib/internal/txn"
)

// classify maps an error to an exit code and a response code.
func classify(err error) (int, string) {
	var exprErr *expr.Error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ExitCommandError, ErrCodeNotFound
	case errors.Is(err, pipeline.ErrParse):
		return ExitFailure, ErrCodeParseFailed
	case errors.Is(err, pipeline.ErrInvalid), errors.Is(err, store.ErrReservedTable), errors.As(err, &exprErr):
		return ExitFailure, ErrCodeInvalid
	case txn.IsDependencyError(err):
		return ExitFailure, ErrCodeDependency
	default:
		return ExitCommandError, ErrCodeGeneric
	}
}

// fail reports err with the codes classify picks.
func fail(f *OutputFormatter, err error) error {
	exit, code := classify(err)
	return f.Fail(exit, code, err, details(err))
}

// details lists joined errors one per entry, or nil for a single error.
func details(err error) any {
	lines := strings.Split(err.Error(), "\n")
	if len(lines) < 2 {
		return nil
	}
	return lines
}
