/*
Copyright 2025 The memofetch authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fetch

import (
	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

// newRetryLogger returns a retryablehttp.LeveledLogger that reports only
// the error lines of the retry loop to the given logr.Logger. The debug
// chatter of the HTTP client (request start, retry waits) is dropped.
func newRetryLogger(logger logr.Logger) retryablehttp.LeveledLogger {
	return &retryLogger{log: logger}
}

type retryLogger struct {
	log logr.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	// retryablehttp passes the error among the key/value pairs, so there
	// is no error value to hand to logr here.
	l.log.Error(nil, msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	// Do nothing.
}
