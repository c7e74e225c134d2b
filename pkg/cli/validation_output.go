package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/githubnext/ocsfc/pkg/console"
)

// FormatCommandError formats a command error for console output. Joined
// errors (every corpus error of one load) are rendered one per line.
func FormatCommandError(err error) string {
	if err == nil {
		return ""
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) && len(joined.Unwrap()) > 1 {
		return console.FormatErrorList(fmt.Sprintf("%d errors:", len(joined.Unwrap())), err)
	}
	return console.FormatErrorMessage(err.Error())
}

// PrintCommandError prints a command error to stderr with console formatting.
func PrintCommandError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatCommandError(err))
}
