package cmd

import (
	"fmt"

	"github.com/JakeFAU/stockwatch/internal/stock"
)

// Process exit codes. Only ExitOK and ExitGeneric are used unless strict exit
// codes are enabled.
const (
	ExitOK            = 0
	ExitGeneric       = 1
	ExitConfigMissing = 2
	ExitFetchFailure  = 3
	ExitParseFailure  = 4
	ExitNotifyFailure = 5
)

// ExitError carries a process exit code for a failure that has already been
// logged.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// codeForKind maps a failure kind to its strict exit code.
func codeForKind(kind stock.Kind) int {
	switch kind {
	case stock.KindConfigMissing:
		return ExitConfigMissing
	case stock.KindFetchFailure:
		return ExitFetchFailure
	case stock.KindParseFailure:
		return ExitParseFailure
	case stock.KindNotifyFailure:
		return ExitNotifyFailure
	default:
		return ExitGeneric
	}
}

// exitFor returns nil unless strict is set and err is a classified failure.
func exitFor(strict bool, err error) error {
	if err == nil || !strict {
		return nil
	}
	return &ExitError{Code: codeForKind(stock.KindOf(err)), Err: err}
}
