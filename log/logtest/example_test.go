/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"

	"github.com/statwatch/apisched/log"
)

func Example() {
	f := func(retries int, priority string, logger log.FieldLogger) {
		logger.Warn("request throttled, retry scheduled", log.Int("retries", retries), log.String("priority", priority))
	}

	logRecorder := NewRecorder()
	f(2, "high", logRecorder)

	if logEntry, found := logRecorder.FindEntry("request throttled, retry scheduled"); found {
		fmt.Printf("[%s] %s\n", logEntry.Level, logEntry.Text)
		if retriesField, found := logEntry.FindField("retries"); found {
			fmt.Printf("retries: %d\n", retriesField.Int)
		}
		if priorityField, found := logEntry.FindField("priority"); found {
			fmt.Printf("priority: %s\n", priorityField.Bytes)
		}
	}

	// Output:
	// [warn] request throttled, retry scheduled
	// retries: 2
	// priority: high
}
