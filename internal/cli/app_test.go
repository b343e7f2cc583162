// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/joat/internal/config"
	"github.com/jeranaias/joat/internal/engine"
	"github.com/jeranaias/joat/internal/model"
	"github.com/jeranaias/joat/internal/ollama"
	"github.com/jeranaias/joat/internal/profile"
	"github.com/jeranaias/joat/internal/router"
	"github.com/jeranaias/joat/internal/setup"
)

func TestMain(m *testing.M) {
	ForceColorsEnabled(false)
	os.Exit(m.Run())
}

// =============================================================================
// TEST BACKEND
// =============================================================================

const factorialQuery = "Write a Python function to calculate the factorial of a number"

type testBackend struct {
	mu        sync.Mutex
	installed []string
	runErr    error
	genErr    error
	response  string
	queries   []string
	pulled    []string
}

func (b *testBackend) CheckRunning(ctx context.Context) error { return b.runErr }

func (b *testBackend) InstalledModels(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.runErr != nil {
		return nil, b.runErr
	}
	return append([]string(nil), b.installed...), nil
}

func (b *testBackend) Generate(ctx context.Context, modelName, query string, history []model.Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, query)
	if b.genErr != nil {
		return "", b.genErr
	}
	return b.response, nil
}

func (b *testBackend) Pull(ctx context.Context, name string, progress model.ProgressFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulled = append(b.pulled, name)
	b.installed = append(b.installed, name+":latest")
	if progress != nil {
		progress(model.PullProgress{Model: name, Status: "success"})
	}
	return nil
}

// noPull hides Pull.
type noPull struct {
	engine.Inference
}

// =============================================================================
// HARNESS
// =============================================================================

type runResult struct {
	code   int
	stdout string
	stderr string
}

// writeConfig saves cfg (or the defaults) to a temp file.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.Save(cfg, path))
	return path
}

// runCLI parses argv and runs it against backend with cfgPath as the
// config file and the regular profile unless argv says otherwise.
func runCLI(t *testing.T, backend engine.Inference, cfgPath, stdin string, argv ...string) runResult {
	t.Helper()
	cmd, args, err := Parse(argv)
	require.NoError(t, err)
	if args.ConfigPath == "" {
		args.ConfigPath = cfgPath
	}
	if args.Profile == "" {
		args.Profile = profile.Regular
	}
	if backend == nil {
		backend = &testBackend{}
	}

	var stdout, stderr bytes.Buffer
	app := &App{
		Args:   args,
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(string) string { return "" },
		NewBackend: func(*config.Config, *slog.Logger) (engine.Inference, error) {
			return backend, nil
		},
	}
	code := app.Run(context.Background(), cmd)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// decodeEnvelope decodes a --json envelope, placing data in data.
func decodeEnvelope(t *testing.T, out string, data any) JSONResponse {
	t.Helper()
	var raw struct {
		JSONResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.JSONResponse
}

func essentialConfig() *config.Config {
	cfg := config.Default()
	cfg.Routing.EssentialMode = true
	cfg.Routing.HighPriority = string(router.HighPriorityAllowlist)
	cfg.Routing.Allowlist = []string{"llama3"}
	return cfg
}

// =============================================================================
// ASK
// =============================================================================

func TestAskStreamsResponse(t *testing.T) {
	backend := &testBackend{installed: []string{"codellama:latest", "llama3:latest"}, response: "def factorial(n): ..."}
	r := runCLI(t, backend, writeConfig(t, nil), "", "ask", factorialQuery)

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Equal(t, "def factorial(n): ...\n", r.stdout)
	assert.Contains(t, r.stderr, "[coding_generation -> codellama, ")
	assert.Empty(t, backend.pulled)
}

func TestAskJSONAutoPulls(t *testing.T) {
	backend := &testBackend{response: "Tokyo."}
	r := runCLI(t, backend, writeConfig(t, nil), "", "ask", "--json", "What is the capital of Japan?")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	var out askOutput
	env := decodeEnvelope(t, r.stdout, &out)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "ask", env.Command)
	assert.Equal(t, "Tokyo.", out.Response)
	assert.Equal(t, router.TaskQuestionAnswering, out.TaskType)
	assert.Equal(t, "mistral", out.ModelUsed)
	assert.Equal(t, []string{"mistral"}, backend.pulled)
	assert.Contains(t, r.stderr, "mistral")
}

func TestAskBackendUnavailable(t *testing.T) {
	backend := &testBackend{
		installed: []string{"codellama:latest"},
		genErr:    &ollama.ClientError{Type: ollama.ErrTypeNotRunning, Message: "Ollama is not running"},
	}
	r := runCLI(t, backend, writeConfig(t, nil), "", "ask", factorialQuery)

	assert.Equal(t, ExitBackendError, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "[ERROR] backend_unavailable")
	assert.Contains(t, r.stderr, "ollama serve")
}

func TestAskJSONErrorKeepsDecision(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, essentialConfig()), "", "ask", "--json", "Solve the equation: 3x + 7 = 22")

	assert.Equal(t, ExitGeneralError, r.code)
	var out askOutput
	env := decodeEnvelope(t, r.stdout, &out)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "fallback_exhausted")
	assert.Equal(t, router.ErrKindFallbackExhausted, out.ErrorKind)
	assert.Equal(t, router.TaskMathematicalReasoning, out.TaskType)
}

func TestAskReadsStdin(t *testing.T) {
	backend := &testBackend{installed: []string{"mistral"}, response: "Tokyo."}
	r := runCLI(t, backend, writeConfig(t, nil), "What is the capital of Japan?\n", "ask")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Equal(t, "Tokyo.\n", r.stdout)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, "What is the capital of Japan?\n", backend.queries[0])
}

func TestAskEmptyQuery(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "ask")
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.stderr, "missing required argument: question")
}

// =============================================================================
// ROUTE
// =============================================================================

func TestRouteJSON(t *testing.T) {
	backend := &testBackend{}
	r := runCLI(t, backend, writeConfig(t, nil), "", "route", "--json", factorialQuery)

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	var d router.RoutingDecision
	env := decodeEnvelope(t, r.stdout, &d)
	assert.True(t, env.Success)
	assert.Equal(t, router.TaskCodingGeneration, d.TaskType)
	assert.Equal(t, "codellama", d.ModelName)
	assert.Empty(t, backend.queries)
}

func TestRouteHuman(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "route", factorialQuery)

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "coding_generation")
	assert.Contains(t, r.stdout, "codellama")
	assert.Contains(t, r.stdout, profile.Regular)
}

func TestRouteEssentialFallback(t *testing.T) {
	cfg := essentialConfig()
	cfg.Routing.Fallbacks = map[string]string{"coding_generation": "llama3"}
	r := runCLI(t, &testBackend{}, writeConfig(t, cfg), "", "route", factorialQuery)

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "llama3")
	assert.Contains(t, r.stdout, "essential mode")
}

// =============================================================================
// TEST-MODELS
// =============================================================================

var regularInstalled = []string{
	"codellama:latest", "llama3:latest", "wizard-math:latest", "phi3:latest",
	"mistral:latest", "mixtral:latest", "llava:latest",
}

func TestTestModels(t *testing.T) {
	backend := &testBackend{installed: regularInstalled, response: "ok"}
	r := runCLI(t, backend, writeConfig(t, nil), "", "test-models")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "10/10 models working")
	assert.Contains(t, r.stdout, "All models are working.")
	assert.Contains(t, r.stdout, "answered by wizard-math")
	assert.Len(t, backend.queries, 10)
	assert.Empty(t, backend.pulled)
}

func TestTestModelsEssentialJSON(t *testing.T) {
	backend := &testBackend{installed: regularInstalled, response: "ok"}
	r := runCLI(t, backend, writeConfig(t, essentialConfig()), "", "test-models", "--essential", "--json")

	assert.Equal(t, ExitGeneralError, r.code)
	var out testModelsOutput
	env := decodeEnvelope(t, r.stdout, &out)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "model checks failed")
	assert.True(t, out.Essential)
	assert.Equal(t, 10, out.Total)
	assert.Less(t, out.Passed, out.Total)

	var math *engine.ModelCheck
	for i := range out.Checks {
		if out.Checks[i].Task == router.TaskMathematicalReasoning {
			math = &out.Checks[i]
		}
	}
	require.NotNil(t, math)
	require.NotNil(t, math.Error)
	assert.Equal(t, router.ErrKindFallbackExhausted, math.Error.Kind)
	assert.Equal(t, "wizard-math", math.MappedModel)
}

func TestTestModelsSingleModel(t *testing.T) {
	backend := &testBackend{installed: regularInstalled, response: "Hello from phi3."}
	r := runCLI(t, backend, writeConfig(t, nil), "", "test-models", "--model", "phi3", "--query", "hello")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "Hello from phi3.")
	assert.Equal(t, []string{"hello"}, backend.queries)
}

func TestTestModelsSingleModelFailure(t *testing.T) {
	backend := &testBackend{installed: regularInstalled, genErr: errors.New("model 'phi3' exploded: CUDA OOM")}
	r := runCLI(t, backend, writeConfig(t, nil), "", "test-models", "--model", "phi3", "--json")

	assert.Equal(t, ExitGeneralError, r.code)
	var out engine.ModelCheck
	env := decodeEnvelope(t, r.stdout, &out)
	assert.False(t, env.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, router.ErrKindGenerationFailure, out.Error.Kind)
	assert.Equal(t, "model 'phi3' exploded: CUDA OOM", out.Error.Message)
	assert.Equal(t, engine.DefaultCheckQuery, out.Query)
}

func TestTestModelsBackendDown(t *testing.T) {
	backend := &testBackend{runErr: ollama.ErrNotRunning}
	r := runCLI(t, backend, writeConfig(t, nil), "", "test-models")

	assert.Equal(t, ExitBackendError, r.code)
	assert.Contains(t, r.stderr, "[ERROR] backend_unavailable")
	assert.Empty(t, backend.queries)
}

// =============================================================================
// STATUS AND PROFILES
// =============================================================================

func TestStatus(t *testing.T) {
	backend := &testBackend{installed: []string{"codellama:latest", "llama3:latest"}}
	r := runCLI(t, backend, writeConfig(t, nil), "", "status")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "6 of 10 models missing.")
	assert.Contains(t, r.stdout, profile.Regular+" (explicit)")
}

func TestStatusBackendDown(t *testing.T) {
	backend := &testBackend{runErr: ollama.ErrNotRunning}
	r := runCLI(t, backend, writeConfig(t, nil), "", "status")

	assert.Equal(t, ExitBackendError, r.code)
	assert.Contains(t, r.stdout, "Backend is not reachable.")
	assert.Contains(t, r.stderr, "[ERROR] backend_unavailable")
}

func TestStatusJSON(t *testing.T) {
	backend := &testBackend{installed: []string{"codellama:latest", "llama3:latest"}}
	r := runCLI(t, backend, writeConfig(t, nil), "", "status", "--json")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	var out statusOutput
	env := decodeEnvelope(t, r.stdout, &out)
	assert.True(t, env.Success)
	assert.True(t, out.Running)
	assert.Equal(t, profile.Regular, out.Profile)
	assert.Len(t, out.Models, 10)
	assert.Equal(t, 6, out.MissingCount())
}

func TestProfilesJSON(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "profiles", "--json")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	var out profilesOutput
	decodeEnvelope(t, r.stdout, &out)
	assert.Equal(t, profile.Regular, out.Active)
	assert.Equal(t, profile.SourceExplicit, out.Source)
	require.Len(t, out.Profiles, 2)
	for _, p := range out.Profiles {
		assert.Equal(t, p.Name == profile.Regular, p.Active, p.Name)
		assert.Len(t, p.Mapping, 10)
	}
}

func TestUnknownProfile(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "--profile", "huge_models", "status")
	assert.Equal(t, ExitConfigError, r.code)
	assert.Contains(t, r.stderr, "[huge_models]")
}

// =============================================================================
// SETUP
// =============================================================================

func TestSetupInstallsHighPriority(t *testing.T) {
	backend := &testBackend{}
	r := runCLI(t, backend, writeConfig(t, nil), "", "setup", "--yes")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.ElementsMatch(t, []string{"codellama", "llama3", "mistral", "wizard-math"}, backend.pulled)
	assert.Contains(t, r.stdout, "Models to install (level high)")
}

func TestSetupSkipsInstalled(t *testing.T) {
	backend := &testBackend{installed: []string{"codellama:latest", "llama3:latest", "mistral:latest", "wizard-math:latest"}}
	r := runCLI(t, backend, writeConfig(t, nil), "", "setup", "--yes")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Empty(t, backend.pulled)
	assert.Contains(t, r.stdout, "All high-priority models are installed.")
}

func TestSetupDeclined(t *testing.T) {
	backend := &testBackend{}
	r := runCLI(t, backend, writeConfig(t, nil), "n\n", "setup", "--level", "medium")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Empty(t, backend.pulled)
	assert.Contains(t, r.stdout, "phi3")
	assert.Contains(t, r.stdout, "Setup canceled.")
}

func TestSetupJSONDryRun(t *testing.T) {
	backend := &testBackend{}
	r := runCLI(t, backend, writeConfig(t, nil), "", "setup", "--json")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Empty(t, backend.pulled)
	var out setupOutput
	decodeEnvelope(t, r.stdout, &out)
	assert.Equal(t, setup.PriorityHigh, out.Plan.Level)
	assert.Equal(t, []string{"codellama", "llama3", "mistral", "wizard-math"}, out.Plan.Names())
	assert.Empty(t, out.Results)
}

func TestSetupNeedsPuller(t *testing.T) {
	r := runCLI(t, noPull{&testBackend{}}, writeConfig(t, nil), "", "setup", "--yes")
	assert.Equal(t, ExitConfigError, r.code)
	assert.Contains(t, r.stderr, "cannot install models")
}

func TestSetupInvalidLevel(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "setup", "--level", "huge")
	assert.Equal(t, ExitUsageError, r.code)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joat.toml")

	r := runCLI(t, nil, "", "", "config", "init", "--config", path)
	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	_, err := os.Stat(path)
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendOllama, cfg.Backend.Kind)

	r = runCLI(t, nil, "", "", "config", "init", "--config", path)
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.stderr, "already exists")

	r = runCLI(t, nil, "", "", "config", "init", "--yes", "--config", path)
	assert.Equal(t, ExitSuccess, r.code)
}

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "joat.toml")
	r := runCLI(t, nil, path, "", "config", "path")
	require.Equal(t, ExitSuccess, r.code)
	assert.Equal(t, path+"\n", r.stdout)
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.APIKey = "sk-secret-value"
	r := runCLI(t, nil, writeConfig(t, cfg), "", "config", "show")

	require.Equal(t, ExitSuccess, r.code, "stderr: %s", r.stderr)
	assert.Contains(t, r.stdout, "********")
	assert.NotContains(t, r.stdout, "sk-secret-value")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[backend]\nkind = \"bogus\"\n"), 0o600))

	r := runCLI(t, &testBackend{}, path, "", "status")
	assert.Equal(t, ExitConfigError, r.code)
	assert.Contains(t, r.stderr, "backend.kind")

	r = runCLI(t, &testBackend{}, path, "", "status", "--json")
	assert.Equal(t, ExitConfigError, r.code)
	assert.Contains(t, r.stdout, `"success": false`)
	assert.Contains(t, r.stdout, `"exit_code": 3`)
}

func TestMissingConfigFile(t *testing.T) {
	r := runCLI(t, &testBackend{}, filepath.Join(t.TempDir(), "nope.toml"), "", "status")
	assert.Equal(t, ExitConfigError, r.code)
}

// =============================================================================
// MISC
// =============================================================================

func TestVersionJSON(t *testing.T) {
	r := runCLI(t, nil, "", "", "version", "--json")
	require.Equal(t, ExitSuccess, r.code)
	var out versionOutput
	decodeEnvelope(t, r.stdout, &out)
	assert.Equal(t, Version, out.Version)
	assert.NotEmpty(t, out.GoVersion)
}

func TestHelp(t *testing.T) {
	r := runCLI(t, nil, "", "", "help")
	require.Equal(t, ExitSuccess, r.code)
	assert.Contains(t, r.stdout, "Usage:")
	assert.Contains(t, r.stdout, "joat route")
}

func TestTUIRequiresTerminal(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "")
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.stderr, "needs a terminal")
}

func TestInvalidLogLevel(t *testing.T) {
	r := runCLI(t, &testBackend{}, writeConfig(t, nil), "", "--log-level", "loud", "status")
	assert.Equal(t, ExitUsageError, r.code)
}
