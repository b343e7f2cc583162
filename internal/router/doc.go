// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router classifies free-text queries into task types and selects
// the model that should serve them.
//
// The pipeline runs strictly downward:
//
//	query -> TaskClassifier -> active profile lookup -> FallbackPolicy -> RoutingDecision
//
// TaskClassifier has two stages. Queries containing an ambiguous trigger
// word (solve, algorithm, problem, calculate, compute) are first offered to
// the MathCodeDisambiguator, which weighs regex indicators for mathematics
// against indicators for programming. A confident verdict (margin above the
// threshold) wins outright; anything else falls through to the
// KeywordClassifier, which counts keyword substrings per task type and breaks
// ties by declaration order.
//
// All tables are compiled once into an immutable Tables value and injected
// into the components, so a Router is safe for concurrent use. The Router
// performs no I/O; generation belongs to the inference backend.
package router
