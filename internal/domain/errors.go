package domain

import "errors"

// ErrInvalidSubmission indicates intake data is incomplete and cannot start an analysis.
var ErrInvalidSubmission = errors.New("invalid submission")

// ErrNoOutcomeToReport indicates a report was requested without a successful analysis outcome.
var ErrNoOutcomeToReport = errors.New("no outcome to report")

// ErrInvalidTransition indicates a trigger that is not legal from the current stage.
var ErrInvalidTransition = errors.New("invalid stage transition")

// ErrAnalysisInProgress indicates a duplicate submission while an analysis is in flight.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// ErrInvalidOutcome indicates analysis output that violates outcome invariants.
var ErrInvalidOutcome = errors.New("invalid analysis outcome")

// ErrUnknownDiagnosis indicates a prediction label outside the supported classes.
var ErrUnknownDiagnosis = errors.New("unknown diagnosis")
