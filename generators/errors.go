package generators

import "errors"

var (
	ErrRetryable = errors.New("retryable")
	ErrNoAPIKey  = errors.New("no api key")
	ErrNoOutput  = errors.New("no output")
)
