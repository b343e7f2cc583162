// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/logging"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures New. Config and Backend are required.
type Options struct {
	Config  *config.Config
	Backend Inference

	// Document overrides the profile document named by the config.
	Document *profile.Document
	// Tables overrides the routing tables named by the config.
	Tables *router.Tables
	// Profile names the active profile explicitly, ahead of the config's
	// profiles.active.
	Profile string
	// Getenv replaces os.Getenv for the profile override variable.
	Getenv func(string) string
	// Progress receives pull progress during auto-pull.
	Progress model.ProgressFunc

	Logger *slog.Logger
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine routes queries and runs them on the backend. The active profile is
// fixed for the engine's lifetime. Safe for concurrent use.
type Engine struct {
	cfg        *config.Config
	backend    Inference
	doc        *profile.Document
	resolution profile.Resolution
	router     *router.Router
	stats      *router.Stats
	progress   model.ProgressFunc
	logger     *slog.Logger
}

// New loads tables and the profile document, resolves the active profile
// once, and builds the router. A missing or invalid profile is a
// configuration error.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("engine: config is required")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("engine: backend is required")
	}
	cfg := opts.Config
	logger := logging.OrDiscard(opts.Logger)

	tables, err := loadTables(cfg, opts.Tables)
	if err != nil {
		return nil, err
	}

	doc := opts.Document
	if doc == nil {
		if doc, err = loadDocument(cfg); err != nil {
			return nil, err
		}
	}

	resolverOpts := []profile.ResolverOption{
		profile.WithEnvVar(cfg.Profiles.EnvVar),
		profile.WithLogger(logger),
	}
	if opts.Getenv != nil {
		resolverOpts = append(resolverOpts, profile.WithGetenv(opts.Getenv))
	}
	explicit := opts.Profile
	if explicit == "" {
		explicit = cfg.Profiles.Active
	}
	res, err := profile.NewResolver(doc, opts.Backend, resolverOpts...).Resolve(ctx, explicit)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.Routing.Policy()
	if err != nil {
		return nil, &router.RouteError{Kind: router.ErrKindConfig, Message: "routing.high_priority", Cause: err}
	}
	fallbacks, err := cfg.Routing.FallbackTable()
	if err != nil {
		return nil, &router.RouteError{Kind: router.ErrKindConfig, Message: "routing.fallbacks", Cause: err}
	}
	highPriority := router.HighPriorityModels(policy, res.Profile.Models, cfg.Routing.Allowlist)

	stats := router.NewStats()
	rt := router.New(
		router.NewTaskClassifier(tables),
		router.NewFallbackPolicy(res.Profile.Models, highPriority, fallbacks),
		router.WithLogger(logger),
		router.WithStats(stats),
	)

	logger.Info("engine ready",
		"profile", res.Profile.Name,
		"source", res.Source,
		"backend", cfg.Backend.Kind,
		"essential", cfg.Routing.EssentialMode,
		"high_priority", len(highPriority))

	return &Engine{
		cfg:        cfg,
		backend:    opts.Backend,
		doc:        doc,
		resolution: res,
		router:     rt,
		stats:      stats,
		progress:   opts.Progress,
		logger:     logger,
	}, nil
}

func loadTables(cfg *config.Config, override *router.Tables) (*router.Tables, error) {
	tables := override
	if tables == nil {
		if cfg.Routing.TablesFile != "" {
			var err error
			if tables, err = router.LoadTables(cfg.Routing.TablesFile); err != nil {
				return nil, err
			}
		} else {
			tables = router.DefaultTables()
		}
	}
	if cfg.Routing.ConfidenceThreshold == nil {
		return tables, nil
	}
	t, err := tables.WithThreshold(*cfg.Routing.ConfidenceThreshold)
	if err != nil {
		return nil, &router.RouteError{Kind: router.ErrKindConfig, Message: "routing.confidence_threshold", Cause: err}
	}
	return t, nil
}

func loadDocument(cfg *config.Config) (*profile.Document, error) {
	if cfg.Profiles.File == "" {
		return profile.Default(), nil
	}
	return profile.Load(cfg.Profiles.File)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Backend returns the inference backend.
func (e *Engine) Backend() Inference { return e.backend }

// Router returns the router.
func (e *Engine) Router() *router.Router { return e.router }

// Stats returns the routing statistics.
func (e *Engine) Stats() *router.Stats { return e.stats }

// Document returns the loaded profile document.
func (e *Engine) Document() *profile.Document { return e.doc }

// Resolution returns how the active profile was chosen.
func (e *Engine) Resolution() profile.Resolution { return e.resolution }

// Profile returns the active profile.
func (e *Engine) Profile() profile.Profile { return e.resolution.Profile }

// Essential reports whether essential mode is on by configuration.
func (e *Engine) Essential() bool { return e.cfg.Routing.EssentialMode }

// Route classifies query and selects a model without touching the backend.
// Essential mode applies when either the configuration or the caller asks.
func (e *Engine) Route(query string, essential bool) router.RoutingDecision {
	return e.router.Route(query, essential || e.cfg.Routing.EssentialMode)
}
