package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/live-search/internal/client"
	"github.com/omochice/live-search/internal/config"
	"github.com/omochice/live-search/internal/search"
)

// lineInput is an always-focused input fed from stdin.
type lineInput struct {
	mu    sync.Mutex
	value string
}

func (i *lineInput) Set(v string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.value = v
}

func (i *lineInput) Value() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.value
}

func (i *lineInput) Focused() bool { return true }

type line string

func (line) Append(search.Node) {}

// printer writes each attached result line to out.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) Append(child search.Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  %s\n", child.(line))
}

func (p *printer) Clear() {}

func (p *printer) SetHasResults(bool) {}

func main() {
	configPath := flag.String("config", "", "Path to a TOML client configuration")
	endpoint := flag.String("endpoint", "", "Search endpoint (e.g., ws://localhost:8080/search)")
	flag.Set("logtostderr", "true")
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
	if err := cfg.Validate(); err != nil {
		glog.Exitf("Invalid config: %v", err)
	}

	c := client.New(cfg)
	defer c.Close()

	input := &lineInput{}
	session := c.NewSession(input, &printer{out: os.Stdout}, search.Hooks{
		Item: func(text string, id uint64, isSuggestion bool) search.Node {
			if isSuggestion {
				return line(fmt.Sprintf("[%d] %s (suggested)", id, text))
			}
			return line(fmt.Sprintf("[%d] %s", id, text))
		},
		Placeholder: func() search.Node {
			return line("no results")
		},
	})
	defer session.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		fmt.Println("Type a word to look up (or 'quit' to exit):")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "quit" || text == "exit" {
				return nil
			}
			input.Set(text)
		}
		return scanner.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		glog.Errorf("Error reading input: %v", err)
	}
}
