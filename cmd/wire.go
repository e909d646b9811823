package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/aka-Rakesh/Xbot/internal/bot"
	"github.com/aka-Rakesh/Xbot/internal/config"
	"github.com/aka-Rakesh/Xbot/internal/generator"
	"github.com/aka-Rakesh/Xbot/internal/poster"
	"github.com/aka-Rakesh/Xbot/internal/scraper"
	"github.com/aka-Rakesh/Xbot/internal/store"
)

// runtime bundles everything a command needs after wiring.
type runtime struct {
	cfg   *config.Config
	store store.Store
	bot   *bot.Bot
}

func (r *runtime) Close() {
	r.store.Close()
}

// buildRuntime loads the configuration, opens the store, verifies
// platform credentials and assembles the bot.
func buildRuntime(ctx context.Context, c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	transport := poster.NewXAPIClient(poster.DefaultAPIBaseURL, poster.Credentials{
		APIKey:       cfg.Twitter.APIKey,
		APISecret:    cfg.Twitter.APISecret,
		AccessToken:  cfg.Twitter.AccessToken,
		AccessSecret: cfg.Twitter.AccessSecret,
		BearerToken:  cfg.Twitter.BearerToken,
	})

	// A dead credential set should fail here, not during the first
	// cycle hours later.
	if err := transport.VerifyCredentials(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("credential verification failed: %w", err)
	}
	log.Info().Msg("platform credentials verified")

	gen := generator.New(
		cfg.Generator.MaxMessageLength,
		cfg.Generator.MaxThreadLength,
		buildStrategies(cfg)...,
	)

	tp := poster.New(transport, cfg.MinPostInterval(), cfg.MessagePacing(), cfg.RateLimitCooldown())
	discovery := scraper.New(cfg.General.SiteURL)

	return &runtime{
		cfg:   cfg,
		store: st,
		bot:   bot.New(cfg, st, discovery, gen, tp),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		url, err := store.LoadDatabaseURL(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database url: %w", err)
		}
		return store.NewPostgresStore(ctx, url)
	case "sqlite":
		path := cfg.Database.URL
		if path == "" {
			path = filepath.Join("xbotdata", "xbot.db")
		}
		return store.NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// buildStrategies assembles the generation chain: the configured model
// first when one is set, the template fallback always last.
func buildStrategies(cfg *config.Config) []generator.Strategy {
	var strategies []generator.Strategy

	switch cfg.General.DefaultAI {
	case "openai":
		ai := cfg.AI["openai"]
		s, err := generator.NewOpenAIStrategy(stringSetting(ai, "api_key"), stringSetting(ai, "model"))
		if err != nil {
			log.Warn().Err(err).Msg("openai strategy unavailable, using template generation only")
		} else {
			strategies = append(strategies, s)
		}
	case "ollama":
		ai := cfg.AI["ollama"]
		s, err := generator.NewOllamaStrategy(stringSetting(ai, "server_url"), stringSetting(ai, "model"))
		if err != nil {
			log.Warn().Err(err).Msg("ollama strategy unavailable, using template generation only")
		} else {
			strategies = append(strategies, s)
		}
	}

	return append(strategies, generator.NewTemplateStrategy(cfg.Generator.MaxMessageLength))
}

func stringSetting(settings map[string]interface{}, key string) string {
	if settings == nil {
		return ""
	}
	if v, ok := settings[key].(string); ok {
		return v
	}
	return ""
}
