package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/omochice/live-search/internal/config"
	"github.com/omochice/live-search/internal/server"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a TOML server configuration")
	addr := flag.String("addr", "", "Address to listen on (e.g., :8080)")
	dictionary := flag.String("dictionary", "", "Path to a TOML word list")
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	cfg := config.DefaultServer()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadServer(*configPath); err != nil {
			glog.Exitf("Failed to load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *dictionary != "" {
		cfg.DictionaryPath = *dictionary
	}

	words := server.DefaultWords()
	if cfg.DictionaryPath != "" {
		var err error
		if words, err = server.LoadDictionary(cfg.DictionaryPath); err != nil {
			glog.Exitf("Failed to load dictionary: %v", err)
		}
	}

	srv := server.New(cfg, server.NewIndex(words))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, server.ErrServerStopped) {
			glog.Exitf("Server error: %v", err)
		}
	case sig := <-sigChan:
		glog.Infof("Received signal %v, shutting down...", sig)
		srv.Stop()
	}

	glog.Info("Search server stopped")
}
