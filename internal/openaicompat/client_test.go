// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/joat/internal/model"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[{"id":"llama3","object":"model"},{"id":"phi3","object":"model"}]}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1]

		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, tok := range []string{"To", "kyo"} {
				fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", tok)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		fmt.Fprintf(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"echo:%s:%d"}}]}`,
			last.Content, len(req.Messages))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestInstalledModels(t *testing.T) {
	srv := newFakeServer(t)
	c := New(Config{BaseURL: srv.URL + "/v1"})

	require.NoError(t, c.CheckRunning(context.Background()))
	names, err := c.InstalledModels(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"llama3", "phi3"}, names)
}

func TestGenerate(t *testing.T) {
	srv := newFakeServer(t)
	c := New(Config{BaseURL: srv.URL + "/v1/"})

	history := []model.Message{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleAssistant},
	}
	got, err := c.Generate(context.Background(), "llama3", "capital of Japan?", history)
	require.NoError(t, err)
	if got != "echo:capital of Japan?:3" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := newFakeServer(t)
	c := New(Config{BaseURL: srv.URL + "/v1"})

	var tokens []string
	got, err := c.GenerateStream(context.Background(), "llama3", "q", nil, func(s string) {
		tokens = append(tokens, s)
	})
	require.NoError(t, err)
	if got != "Tokyo" {
		t.Errorf("GenerateStream() = %q, want Tokyo", got)
	}
	require.Equal(t, []string{"To", "kyo"}, tokens)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url + "/v1"})
	err := c.CheckRunning(context.Background())
	var e *Error
	require.True(t, errors.As(err, &e))
	if !e.Unavailable() {
		t.Errorf("Unavailable() = false for closed server: %v", err)
	}
}

func TestServerError_NotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"unknown model","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/v1"})
	_, err := c.Generate(context.Background(), "nope", "q", nil)
	var e *Error
	require.True(t, errors.As(err, &e))
	if e.Unavailable() {
		t.Error("Unavailable() = true for a 400 response")
	}
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]model.Message{
		{Role: model.RoleSystem, Content: "sys"},
		{Role: model.RoleUser, Content: "u"},
	}, "")
	require.Len(t, msgs, 2)
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("roles = %s,%s", msgs[0].Role, msgs[1].Role)
	}
}
