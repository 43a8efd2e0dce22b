package main

import (
	"flag"
	"fmt"
	"os"
)

func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	output := fs.String("o", "", "Write the ICS to a file instead of stdout")
	server := fs.String("server", "", "Backend base URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alturactl fetch [options] <id>\n\nDownload the raw ICS for a schedule.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("schedule id is required")
	}

	client := newClient(serverURL(*server))
	data, err := client.Fetch(requestContext(), fs.Arg(0))
	if err != nil {
		return err
	}

	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Schedule written to %s\n", *output)
		return nil
	}

	_, err = os.Stdout.Write(data)
	return err
}
