package model

import "errors"

// Error kinds of the prediction pipeline. Callers match them with errors.Is;
// adapters wrap them with context using fmt.Errorf("...: %w").
var (
	// ErrUserNotFound means the user record does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPredictionsAvailable is returned to read-only callers when no
	// prediction has ever been stored for the user.
	ErrNoPredictionsAvailable = errors.New("no predictions available")

	// ErrInferenceOutput means the inference procedure produced output that
	// could not be decoded at all.
	ErrInferenceOutput = errors.New("inference output could not be decoded")

	// ErrInferenceTimeout means the inference procedure did not finish
	// within its deadline.
	ErrInferenceTimeout = errors.New("inference timed out")

	// ErrValidation means normalized predictions failed the sanity check
	// and were not persisted.
	ErrValidation = errors.New("prediction validation failed")

	// ErrPersistence means a store write failed.
	ErrPersistence = errors.New("prediction persistence failed")

	// ErrEnrichment marks background description enrichment failures. It
	// only ever appears in logs.
	ErrEnrichment = errors.New("description enrichment failed")
)
