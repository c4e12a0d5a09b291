package main

import (
	"fmt"
	"os"

	"github.com/spboyer/codearena/internal/projectconfig"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0
	ExitError   = 2 // runtime error
	ExitConfig  = 3 // unusable configuration, reported before anything runs
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
	os.Exit(ExitSuccess)
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if projectconfig.IsConfigError(err) {
		return ExitConfig
	}
	return ExitError
}
