// Command probe fetches the workspace once and prints what came back.
// It is a manual smoke test for an API key and endpoint.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robby/linearpulse/internal/config"
	"github.com/robby/linearpulse/internal/flatten"
	"github.com/robby/linearpulse/internal/linear"
	"github.com/robby/linearpulse/internal/store"
)

func main() {
	path := "config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}

	client, err := linear.NewFromConfig(cfg.Linear.Endpoint, cfg.Linear.APIKey, linear.WithIssueLimit(cfg.Linear.IssueLimit))
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	viewer, err := client.Viewer(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Viewer: %s <%s>\n\n", viewer.Name, viewer.Email)

	start := time.Now()
	ds, err := client.FetchAll(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Fetched in %s: %d teams, %d projects, %d issues\n\n",
		time.Since(start).Round(time.Millisecond), len(ds.Teams), len(ds.Projects), len(ds.Issues))

	s := store.New()
	s.Load(ds, time.Now())

	fmt.Println("Projects per team:")
	for _, t := range s.Teams() {
		fmt.Printf("  %-20s %d\n", t.Name, len(s.ColumnProjectIDs(t.ID)))
	}
	if n := len(s.ColumnProjectIDs(store.NoTeamKey)); n > 0 {
		fmt.Printf("  %-20s %d\n", "(no team)", n)
	}

	rows, err := flatten.Projects(ds.Projects, time.Now())
	if err != nil {
		log.Fatal(err)
	}
	statuses := make(map[flatten.DeadlineStatus]int)
	for _, r := range rows {
		statuses[r.DeadlineStatus]++
	}
	fmt.Println("\nDeadline status:")
	for status, count := range statuses {
		fmt.Printf("  %-20s %d\n", status, count)
	}
}
