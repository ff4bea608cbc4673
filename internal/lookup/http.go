// Package lookup talks to the HTTP services behind the wiki and YouTube
// modules.
package lookup

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/inconshreveable/log15.v2"
)

type leveledLog15 struct {
	inner log15.Logger
}

// retries are expected, so client errors are logged as warnings
func (l leveledLog15) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledLog15) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledLog15) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledLog15) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

// NewHTTPClient returns a client that retries connection errors, 5xx and
// 429 responses a few times before giving up.
func NewHTTPClient(log log15.Logger, timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledLog15{log})
	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}
