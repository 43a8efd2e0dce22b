package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/alturatime/backend/common/callwindow"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	server := fs.String("server", "", "Backend base URL")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: alturactl status [options] <id>\n\nFetch a schedule and print the owner's live call window.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("schedule id is required")
	}

	ctx := requestContext()
	client := newClient(serverURL(*server))

	meta, err := client.Meta(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	data, err := client.Fetch(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	sched, err := callwindow.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse schedule: %w", err)
	}

	now := time.Now()
	fmt.Printf("%s (%s)\n", meta.Name, sched.TZID)
	fmt.Printf("local time: %s, %s\n", now.In(sched.Location).Format("3:04 PM"), sched.DayPart(now))
	fmt.Printf("status:     %s\n", sched.StatusAt(now))
	if next, ok := sched.NextEventAfter(now); ok {
		fmt.Printf("next:       %s in %s\n", next.Summary, callwindow.FormatUntil(now, next.Start))
	} else {
		fmt.Printf("next:       no more classes today\n")
	}
	fmt.Printf("events:     %d\n", len(sched.Events))
	return nil
}
