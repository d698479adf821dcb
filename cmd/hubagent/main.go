// Command hubagent asks a chat model a question with the Superface hub's
// tools bound, executes the tool calls it requests and prints the answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/martyndavies/hubapi-example-langchain/internal/agent"
	"github.com/martyndavies/hubapi-example-langchain/internal/cache"
	"github.com/martyndavies/hubapi-example-langchain/internal/config"
	"github.com/martyndavies/hubapi-example-langchain/internal/hub"
	"github.com/martyndavies/hubapi-example-langchain/internal/logging"
	"github.com/martyndavies/hubapi-example-langchain/internal/server"
	"github.com/martyndavies/hubapi-example-langchain/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg("hubagent failed")
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hubagent", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("HUBAGENT_CONFIG"), "path to a JSON or YAML config file")
	prompt := fs.String("prompt", "", "prompt to send (defaults to the configured prompt)")
	serve := fs.Bool("serve", false, "run the HTTP API instead of a single prompt")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		info := version.Get()
		fmt.Fprintf(stdout, "hubagent %s (commit %s, built %s, %s %s)\n",
			info.Version, info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
		return nil
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	store, closeStore, err := newCatalogCache(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	hubClient := hub.New(hub.Options{
		BaseURL:   cfg.HubBaseURL,
		AuthToken: cfg.HubAuthToken,
		UserID:    cfg.HubUserID,
		Timeout:   cfg.HubTimeout,
		RateLimit: cfg.HubRateLimit,
		Cache:     store,
		CacheTTL:  cfg.CatalogTTL,
	})

	model, err := agent.NewModel(ctx, agent.ModelConfig{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey(),
		BaseURL:   cfg.BaseURL(),
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return err
	}
	if c, ok := model.(io.Closer); ok {
		closers = append(closers, c.Close)
	}

	conv := agent.NewConversation(hubClient, model, agent.NewExecutor(hubClient, cfg.MaxParallel), cfg.RequireTools)

	if *serve {
		srv := server.New(cfg, server.Deps{
			Catalog:   hubClient,
			Runner:    conv,
			ModelName: model.Name(),
			Closers:   closers,
		})
		return srv.Run(ctx)
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	text := *prompt
	if text == "" {
		text = cfg.Prompt
	}
	runCtx := ctx
	if cfg.AgentTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.AgentTimeout)
		defer cancel()
	}

	out, err := conv.Run(runCtx, text)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "\n\n%s\n\n%s\n", out.Prompt, out.Answer)
	return err
}

// newCatalogCache picks Redis when an address is configured, otherwise an
// in-process LRU. A zero TTL disables catalog caching.
func newCatalogCache(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	if cfg.CatalogTTL <= 0 {
		return nil, nil, nil
	}
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cfg.RedisAddr, "hubagent:")
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("catalog cache: redis")
		return r, r.Close, nil
	}
	return cache.NewMemory(cfg.CatalogMaxLen), nil, nil
}
