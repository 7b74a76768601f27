package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/blackwell-systems/logs2eca/internal/config"
)

// ExitStatus reports err on w and returns the process exit status. Missing
// required settings and interruption are not failures.
func ExitStatus(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var missing *config.MissingRequiredError
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted by user")
		return 0
	case errors.As(err, &missing):
		fmt.Fprintln(w, missing.Error())
		return 0
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
}
