/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command apisched runs the rate-limited request scheduler together with the cron-driven poller and the admin API.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
