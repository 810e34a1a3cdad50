package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrContract marks importer or fetcher output that violates its
	// interface.
	ErrContract = errors.New("ingest: collaborator contract violation")
	// ErrUnknownFormat is returned when no importer is registered for a
	// format.
	ErrUnknownFormat = errors.New("ingest: unknown format")
)

// ContractError names the collaborator, the offending field and why it was
// rejected.
type ContractError struct {
	Format string
	Field  string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("ingest: %s output violates contract: %s: %s", e.Format, e.Field, e.Reason)
}

func (e *ContractError) Unwrap() error { return ErrContract }

// StepError reports a calibration step that failed and was skipped.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("ingest: calibration step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
