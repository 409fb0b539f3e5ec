package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/live-search/internal/client"
	"github.com/omochice/live-search/internal/config"
	"github.com/omochice/live-search/internal/search"
	"github.com/omochice/live-search/internal/tui"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a TOML client configuration")
	endpoint := flag.String("endpoint", "", "Search endpoint (e.g., ws://localhost:8080/search)")
	ownSuggestions := flag.Bool("include-own-suggestions", false, "Include your own suggested entries in results")
	excludeID := flag.Uint64("exclude-id", 0, "Entry hidden from the duplicate check field")
	excludeSuggestion := flag.Bool("exclude-suggestion", false, "Whether -exclude-id refers to a suggestion")
	flag.Parse()
	defer glog.Flush()

	cfg := config.DefaultClient()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadClient(*configPath); err != nil {
			glog.Exitf("Failed to load config: %v", err)
		}
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *ownSuggestions {
		cfg.IncludeOwnSuggestions = true
	}
	if err := cfg.Validate(); err != nil {
		glog.Exitf("Invalid config: %v", err)
	}

	c := client.New(cfg)
	defer c.Close()

	duplicates := tui.WidgetSpec{Label: "Duplicate check", Placeholder: "new entry..."}
	if *excludeID != 0 {
		duplicates.Filter = search.Exclude(*excludeID, *excludeSuggestion)
	}
	model := tui.New(c, []tui.WidgetSpec{
		{Label: "Search", Placeholder: "english or isiXhosa..."},
		duplicates,
	}, func() string { return c.Transport().State().String() }, c.Transport().IsOpen)
	defer model.Dispose()

	p := tea.NewProgram(model, tea.WithAltScreen())
	model.Attach(p)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}
