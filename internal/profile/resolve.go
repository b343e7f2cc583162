// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultEnvVar names the environment override for the active profile.
const DefaultEnvVar = "JOAT_PROFILE"

// ModelLister reports the models installed on the inference backend.
type ModelLister interface {
	InstalledModels(ctx context.Context) ([]string, error)
}

// Source records how the active profile was chosen.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceEnv      Source = "env"
	SourceAuto     Source = "auto"
	// SourceFailOpen means auto-detection failed and the regular profile
	// was assumed.
	SourceFailOpen Source = "fail-open"
)

// Resolution is the resolver's result.
type Resolution struct {
	Profile Profile
	Source  Source
	// Installed holds the backend's models when auto-detection ran.
	Installed []string
	// DetectErr is the lister failure that caused a fail-open.
	DetectErr error
}

// Resolver picks the active profile once and caches it.
type Resolver struct {
	doc     *Document
	lister  ModelLister
	envVar  string
	getenv  func(string) string
	regular string
	small   string
	logger  *slog.Logger

	mu       sync.Mutex
	resolved bool
	res      Resolution
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvVar changes the override variable name.
func WithEnvVar(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.envVar = name
		}
	}
}

// WithGetenv replaces os.Getenv, for tests.
func WithGetenv(fn func(string) string) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.getenv = fn
		}
	}
}

// WithProfileNames changes which profiles auto-detection chooses between.
func WithProfileNames(regular, small string) ResolverOption {
	return func(r *Resolver) {
		if regular != "" {
			r.regular = regular
		}
		if small != "" {
			r.small = small
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a resolver over doc. lister may be nil, in which case
// auto-detection always fails open.
func NewResolver(doc *Document, lister ModelLister, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		doc:     doc,
		lister:  lister,
		envVar:  DefaultEnvVar,
		getenv:  os.Getenv,
		regular: Regular,
		small:   Small,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errNoLister = errors.New("no model lister configured")

// Resolve selects the active profile: explicit name first, then the
// environment override if it names a known profile, then auto-detection.
// A successful result is cached; later calls return it unchanged, whatever
// explicit name they pass. Failures are not cached.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved {
		return r.res, nil
	}
	res, err := r.resolve(ctx, strings.TrimSpace(explicit))
	if err != nil {
		return Resolution{}, err
	}
	r.res, r.resolved = res, true
	r.logger.Info("active profile",
		"profile", res.Profile.Name,
		"source", res.Source,
		"models", len(res.Profile.ModelNames()))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, explicit string) (Resolution, error) {
	if explicit != "" {
		p, err := r.doc.Get(explicit)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Profile: p, Source: SourceExplicit}, nil
	}

	if env := strings.TrimSpace(r.getenv(r.envVar)); env != "" {
		if r.doc.Has(env) {
			p, err := r.doc.Get(env)
			if err != nil {
				return Resolution{}, err
			}
			return Resolution{Profile: p, Source: SourceEnv}, nil
		}
		r.logger.Warn("ignoring unknown profile override", "var", r.envVar, "value", env)
	}

	installed, err := r.installed(ctx)
	if err != nil {
		r.logger.Warn("profile auto-detection failed, assuming regular profile",
			"profile", r.regular, "error", err)
		p, gerr := r.doc.Get(r.regular)
		if gerr != nil {
			return Resolution{}, gerr
		}
		return Resolution{Profile: p, Source: SourceFailOpen, DetectErr: err}, nil
	}

	name := r.small
	if regular, rerr := r.doc.Get(r.regular); rerr == nil && AllInstalled(regular, installed) {
		name = r.regular
	}
	p, err := r.doc.Get(name)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Profile: p, Source: SourceAuto, Installed: installed}, nil
}

func (r *Resolver) installed(ctx context.Context) ([]string, error) {
	if r.lister == nil {
		return nil, errNoLister
	}
	return r.lister.InstalledModels(ctx)
}

// Active returns the cached resolution and whether Resolve has succeeded.
func (r *Resolver) Active() (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res, r.resolved
}
