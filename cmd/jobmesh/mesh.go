package main

import (
	"context"
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/hupe1980/jobmesh"
	"github.com/hupe1980/jobmesh/config"
	"github.com/hupe1980/jobmesh/engine"
	"github.com/hupe1980/jobmesh/history"
	historypostgres "github.com/hupe1980/jobmesh/history/postgres"
	historysqlite "github.com/hupe1980/jobmesh/history/sqlite"
	"github.com/hupe1980/jobmesh/logging"
	"github.com/hupe1980/jobmesh/metrics"
	"github.com/hupe1980/jobmesh/model"
	"github.com/hupe1980/jobmesh/model/anthropic"
	"github.com/hupe1980/jobmesh/model/openai"
	"github.com/hupe1980/jobmesh/session"
	sessionredis "github.com/hupe1980/jobmesh/session/redis"
	"github.com/hupe1980/jobmesh/tool/jobsearch"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	return config.Load(func(o *config.Options) {
		o.Path = path
	})
}

func newLogger(cfg config.LogConfig) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.Level),
		Format:    cfg.Format,
		Output:    os.Stdout,
		AddSource: cfg.AddSource,
	})
}

func buildModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}

			o.Temperature = cfg.Temperature

			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}

			o.APIKey = cfg.APIKey
		}), nil
	case "openai":
		var clientOpts []option.RequestOption
		if cfg.APIKey != "" {
			clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
		}

		client := openaisdk.NewClient(clientOpts...)

		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}

			o.Temperature = cfg.Temperature

			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "mock":
		return model.NewMockModel("mock-career-model", "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildSessions(cfg config.SessionConfig) (session.Store, func()) {
	if cfg.Backend == "redis" {
		store := sessionredis.New(cfg.Redis.Addr, func(o *sessionredis.Options) {
			o.Password = cfg.Redis.Password
			o.DB = cfg.Redis.DB

			if cfg.Redis.Prefix != "" {
				o.Prefix = cfg.Redis.Prefix
			}

			o.TTL = cfg.Redis.TTL
		})

		return store, func() { _ = store.Close() }
	}

	return session.NewInMemoryStore(), func() {}
}

func buildHistory(ctx context.Context, cfg config.HistoryConfig) (history.Sink, func(), error) {
	switch cfg.Backend {
	case "postgres":
		sink, err := historypostgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres history: %w", err)
		}

		if err := sink.InitSchema(ctx); err != nil {
			sink.Close()

			return nil, nil, fmt.Errorf("failed to init postgres history schema: %w", err)
		}

		return sink, func() { sink.Close() }, nil
	case "sqlite":
		sink, err := historysqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite history: %w", err)
		}

		return sink, func() { _ = sink.Close() }, nil
	default:
		return history.NewInMemorySink(), func() {}, nil
	}
}

func buildSources(cfg config.SourcesConfig) []jobsearch.Source {
	var sources []jobsearch.Source

	if cfg.StepStoneToken != "" {
		sources = append(sources, jobsearch.NewStepStoneSource(cfg.StepStoneToken))
	}

	if cfg.GoogleJobsAPIKey != "" {
		sources = append(sources, jobsearch.NewGoogleJobsSource(cfg.GoogleJobsAPIKey))
	}

	return sources
}

// buildMesh assembles a JobMesh from the config. The returned cleanup closes
// the mesh and every backend it was wired to.
func buildMesh(ctx context.Context, cfg *config.Config, logger logging.Logger, collector *metrics.Collector) (*jobmesh.JobMesh, func(), error) {
	llm, err := buildModel(cfg.Model)
	if err != nil {
		return nil, nil, err
	}

	sessions, closeSessions := buildSessions(cfg.Session)

	sink, closeHistory, err := buildHistory(ctx, cfg.History)
	if err != nil {
		closeSessions()

		return nil, nil, err
	}

	mesh, err := jobmesh.New(func(o *jobmesh.Options) {
		o.EngineConfig = engine.Config{
			MaxConcurrentRuns: cfg.Engine.MaxConcurrentRuns,
			EventBufferSize:   cfg.Engine.EventBufferSize,
			StepBudget:        cfg.Engine.StepBudget,
			ErrorBudget:       cfg.Engine.ErrorBudget,
			StepTimeout:       cfg.Engine.StepTimeout,
		}
		o.Model = llm
		o.Sessions = sessions
		o.History = sink
		o.JobSources = buildSources(cfg.Sources)
		o.BestEffortComprehensive = cfg.Engine.BestEffortComprehensive
		o.Logger = logger

		if collector != nil {
			o.OnStep = collector.ObserveStep
			o.OnFinish = collector.ObserveRun
		}
	})
	if err != nil {
		closeHistory()
		closeSessions()

		return nil, nil, err
	}

	cleanup := func() {
		_ = mesh.Close()
		closeHistory()
		closeSessions()
	}

	return mesh, cleanup, nil
}
