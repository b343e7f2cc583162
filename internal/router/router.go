// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jeranaias/joat/internal/util"
)

// MaxQueryLength is the maximum accepted query length in runes.
const MaxQueryLength = 100000

// logQueryRunes bounds how much of a query reaches the log.
const logQueryRunes = 80

// Router composes the classifier and the fallback policy. It performs no
// I/O and is safe for concurrent use.
type Router struct {
	classifier *TaskClassifier
	policy     *FallbackPolicy
	stats      *Stats
	logger     *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the decision logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStats records every decision into s.
func WithStats(s *Stats) Option {
	return func(r *Router) {
		r.stats = s
	}
}

// New builds a router. classifier may be nil to use the default tables.
func New(classifier *TaskClassifier, policy *FallbackPolicy, opts ...Option) *Router {
	if classifier == nil {
		classifier = NewTaskClassifier(nil)
	}
	if policy == nil {
		policy = NewFallbackPolicy(nil, nil, nil)
	}
	r := &Router{
		classifier: classifier,
		policy:     policy,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classifier returns the router's classifier.
func (r *Router) Classifier() *TaskClassifier {
	return r.classifier
}

// Policy returns the router's fallback policy.
func (r *Router) Policy() *FallbackPolicy {
	return r.policy
}

// Stats returns the attached statistics, or nil.
func (r *Router) Stats() *Stats {
	return r.stats
}

// validateQuery rejects queries that must never reach the classifier.
func validateQuery(query string) *RouteError {
	if strings.TrimSpace(query) == "" {
		return &RouteError{Kind: ErrKindValidation, TaskType: TaskError, Message: "please provide a query"}
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLength {
		return &RouteError{
			Kind:     ErrKindValidation,
			TaskType: TaskError,
			Message:  fmt.Sprintf("query too long: %d characters (max %d)", n, MaxQueryLength),
		}
	}
	return nil
}

// Route classifies query and selects its model. Errors are reported in the
// decision, never returned or panicked.
func (r *Router) Route(query string, essential bool) RoutingDecision {
	if verr := validateQuery(query); verr != nil {
		d := RoutingDecision{TaskType: TaskError, Error: verr}
		r.record(query, d)
		return d
	}

	c := r.classifier.Classify(query)
	res := r.policy.ResolveModel(c.Task, essential)

	d := RoutingDecision{
		TaskType:       c.Task,
		ModelName:      res.Model,
		UsedFallback:   res.UsedFallback,
		FallbackReason: res.Reason,
		Error:          res.Err,
		Stage:          c.Stage,
		Confidence:     c.Confidence,
	}
	r.record(query, d)
	return d
}

func (r *Router) record(query string, d RoutingDecision) {
	if r.stats != nil {
		r.stats.Record(d)
	}

	q := util.TruncateRunes(query, logQueryRunes)
	if d.Error != nil {
		r.logger.Warn("routing failed",
			"query", q,
			"task", d.TaskType,
			"kind", d.Error.Kind,
			"error", d.Error.Message)
		return
	}
	r.logger.Debug("routed query",
		"query", q,
		"task", d.TaskType,
		"model", d.ModelName,
		"stage", d.Stage,
		"confidence", d.Confidence,
		"fallback", d.UsedFallback)
	if d.UsedFallback {
		r.logger.Info("essential-mode fallback", "task", d.TaskType, "model", d.ModelName, "reason", d.FallbackReason)
	}
}
