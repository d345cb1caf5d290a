package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Benchmark finished
	ExitError       = 1 // Runtime error, e.g. an unwritable output file
	ExitConfigError = 2 // Invalid configuration or arguments
	ExitDataError   = 3 // Input data failed the startup checks
)

// ConfigError marks errors caused by the configuration, before any run
// starts.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DataError marks input data that cannot be benchmarked.
type DataError struct {
	Err error
}

func (e *DataError) Error() string {
	return e.Err.Error()
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var dataErr *DataError
	if errors.As(err, &dataErr) {
		return ExitDataError
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
