package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess    = 0 // evaluation ran and the contractor is not ineligible
	ExitIneligible = 1 // --fail-ineligible was set and the verdict is INELIGIBLE
	ExitError      = 2 // bad input or runtime error
)

// IneligibleError reports an INELIGIBLE verdict when the caller asked for it
// to be treated as a failure
type IneligibleError struct {
	Failed []string
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("contractor is INELIGIBLE (failed rules: %v)", e.Failed)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var ineligible *IneligibleError
		if errors.As(err, &ineligible) {
			os.Exit(ExitIneligible)
		}
		os.Exit(ExitError)
	}
}
