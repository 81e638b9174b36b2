package main

import (
	"errors"
	"fmt"
	"os"

	"yashubustudio/cropadvisor/advisor"
)

// Exit codes for different failure modes
const (
	ExitSuccess          = 0
	ExitError            = 1 // configuration or runtime error
	ExitModelUnavailable = 2 // the crop model could not be loaded
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, advisor.ErrModelUnavailable) {
			os.Exit(ExitModelUnavailable)
		}
		os.Exit(ExitError)
	}
}
