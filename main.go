// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"audiorelay/cmd"
	applog "audiorelay/internal/log"
	"audiorelay/pkg/build"
)

// main runs the CLI. Subcommands:
//
//   - serve: accept WebSocket audio, transcribe and translate each window
//   - stream: capture a microphone and stream it to a relay
//   - list: print the available audio devices
func main() {
	// Development builds have no ldflags; fall back to defaults.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info incomplete: %v", err)
	}

	err := cmd.Execute()
	_ = applog.Sync()
	if err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}
