package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
)

func runMeta(args []string) error {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	server := fs.String("server", "", "Backend base URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alturactl meta [options] <id>\n\nPrint the stored metadata for a schedule.\n\nOptions:\n")
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
	meta, err := client.Meta(requestContext(), fs.Arg(0))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
