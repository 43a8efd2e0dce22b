package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alturatime/backend/common/clients"
	"github.com/alturatime/backend/common/logger"
)

const defaultServerURL = "http://localhost:8080"

var commands = map[string]func([]string) error{
	"upload": runUpload,
	"meta":   runMeta,
	"fetch":  runFetch,
	"status": runStatus,
}

func usage() {
	fmt.Fprintf(os.Stderr, `alturactl - AlturaTime schedule sharing CLI

Usage:
  alturactl <command> [options]

Commands:
  upload     Upload an ICS schedule and print its ID and share link
  meta       Print the stored metadata for a schedule
  fetch      Download the raw ICS for a schedule
  status     Print the live call window for a schedule

The backend URL comes from -server or the ALTURATIME_URL environment
variable (default %s). Set INTERNAL_SERVICE_SECRET to
bypass the upload rate limiter when talking to your own deployment.

Run 'alturactl <command> -h' for command-specific help.
`, defaultServerURL)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serverURL resolves the backend base URL from the -server flag value,
// the environment, or the default, in that order
func serverURL(flagValue string) string {
	base := flagValue
	if base == "" {
		base = os.Getenv("ALTURATIME_URL")
	}
	if base == "" {
		base = defaultServerURL
	}
	return strings.TrimRight(base, "/")
}

func newClient(server string) *clients.AlturaTimeClient {
	return clients.NewAlturaTimeClient(server, logger.New("error", "text"))
}

// requestContext returns a context carrying the internal service secret
// when one is configured in the environment
func requestContext() context.Context {
	ctx := context.Background()
	if secret := os.Getenv("INTERNAL_SERVICE_SECRET"); secret != "" {
		ctx = clients.WithInternalSecret(ctx, secret)
	}
	return ctx
}
