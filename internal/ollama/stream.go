// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// maxLineBytes bounds a single NDJSON line.
const maxLineBytes = 1 << 20

// =============================================================================
// NDJSON LINE DECODER
// =============================================================================

// lineDecoder reads newline-delimited JSON objects. Blank and malformed lines
// are skipped, matching how Ollama interleaves keep-alive output.
type lineDecoder struct {
	scanner *bufio.Scanner
}

func newLineDecoder(r io.Reader) *lineDecoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineDecoder{scanner: s}
}

// next decodes the next object into v. It returns io.EOF at end of stream.
func (d *lineDecoder) next(ctx context.Context, v any) error {
	for d.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, v); err != nil {
			continue
		}
		return nil
	}
	if err := d.scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader turns a streamed /api/generate body into chunks.
type StreamReader struct {
	dec         *lineDecoder
	accumulator strings.Builder
	model       string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{dec: newLineDecoder(r)}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		var resp GenerateResponse
		if err := s.dec.next(ctx, &resp); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if resp.Model != "" {
			s.model = resp.Model
		}
		s.accumulator.WriteString(resp.Response)

		chunk := StreamChunk{
			Content:    resp.Response,
			Done:       resp.Done,
			DoneReason: resp.DoneReason,
			Model:      s.model,
		}
		if resp.Done {
			chunk.TotalDuration = time.Duration(resp.TotalDuration)
			chunk.CompletionTokens = resp.EvalCount
		}
		if callback != nil {
			callback(chunk)
		}
		if resp.Done {
			return nil
		}
	}
}

// Accumulated returns all content read so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}
