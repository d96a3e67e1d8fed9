package generators

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/openai/openai-go"
	"github.com/reusee/taidoc/logs"
	"google.golang.org/genai"
)

const maxRetries = 5

var retryBackoff = 1 * time.Second

// streamWithRetry restarts the stream on retryable errors, but only while no fragment has been yielded.
// Once a fragment is out, errors are passed through.
func streamWithRetry(
	ctx context.Context,
	logger logs.Logger,
	disabled bool,
	open func() iter.Seq2[string, error],
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i := 0; ; i++ {
			started := false
			var streamErr error
			for fragment, err := range open() {
				if err != nil {
					streamErr = err
					break
				}
				started = true
				if !yield(fragment, nil) {
					return
				}
			}
			if streamErr == nil {
				return
			}

			if started || disabled || i+1 >= maxRetries || !isRetryable(streamErr) {
				yield("", streamErr)
				return
			}

			logger.WarnContext(ctx, "retry",
				"attempt", i+1,
				"error", streamErr,
			)
			select {
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			case <-time.After(retryBackoff * time.Duration(1<<i)):
			}
		}
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRetryable) {
		return true
	}
	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) {
		return geminiErr.Code == 429 || geminiErr.Code >= 500
	}
	var geminiErrPtr *genai.APIError
	if errors.As(err, &geminiErrPtr) {
		return geminiErrPtr.Code == 429 || geminiErrPtr.Code >= 500
	}
	var openAIErr *openai.Error
	if errors.As(err, &openAIErr) {
		return openAIErr.StatusCode == 429 || openAIErr.StatusCode >= 500
	}
	return false
}
