package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	name := fs.String("name", "", "Display name shown on the share page")
	server := fs.String("server", "", "Backend base URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alturactl upload [options] <file.ics>\n\nUpload a schedule and print its ID and share link.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("schedule file path is required")
	}

	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schedule file: %w", err)
	}

	client := newClient(serverURL(*server))
	result, err := client.Upload(requestContext(), *name, filepath.Base(path), content)
	if err != nil {
		return err
	}

	fmt.Printf("id:   %s\n", result.ID)
	fmt.Printf("name: %s\n", result.Name)
	fmt.Printf("link: %s\n", result.Link)
	return nil
}
