package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Lookup errors
	ErrTaskNotFound    = fmt.Errorf("task not found")
	ErrRecordNotFound  = fmt.Errorf("confirmation record not found")
	ErrContentNotFound = fmt.Errorf("linked content not found")
	ErrCacheMiss       = fmt.Errorf("translation not cached")

	// State errors
	ErrInvalidState   = fmt.Errorf("operation not allowed in current task state")
	ErrPendingRecords = fmt.Errorf("pending confirmation records exist")
	ErrTaskLinked     = fmt.Errorf("task still linked to content")

	// Upstream errors
	ErrWorkerUnavailable = fmt.Errorf("translation worker unavailable")
	ErrStorageFailure    = fmt.Errorf("artifact storage failure")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
