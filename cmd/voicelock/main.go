// Package main provides the voicelock CLI tool.
//
// Usage:
//
//	voicelock [flags] <command> [args]
//
// Commands:
//
//	enroll    - Enroll a user from a WAV recording
//	verify    - Verify a recording against an enrolled template
//	analyze   - Show extraction and liveness diagnostics for a recording
//	identify  - Rank enrolled users against a recording
//	template  - Inspect and manage stored templates
//	attempts  - List the verification audit log for a user
//	config    - Configuration management
//	version   - Show version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.voicelock/config.yaml; templates
//	and archived recordings live next to it unless redirected.
//
// Exit status is 0 only when verification unlocks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/voicelock/voicelock/cmd/voicelock/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		// A denial already printed its verdict; anything else is an error.
		if !errors.Is(err, commands.ErrDenied) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
