package auth

import (
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"

	"github.com/hashicorp/go-retryablehttp"
)

// leveledLogger adapts the application logger to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger *errors.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) { l.logger.Warn(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...any)  { l.logger.Debug(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...any) { l.logger.Debug(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...any)  { l.logger.Warn(msg, keysAndValues...) }

// newHTTPClient builds a client that retries network errors and 5xx/429
// responses, and hands the last response back instead of an error once
// retries are exhausted.
func newHTTPClient(cfg config.AuthConfig, logger *errors.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		client.Logger = leveledLogger{logger: logger}
	} else {
		client.Logger = nil
	}
	return client
}
