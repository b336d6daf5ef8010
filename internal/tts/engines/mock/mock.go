// Package mock provides a scriptable tts.Engine for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/elitetrack/audiogen/internal/tts"
)

// Engine implements tts.Engine without producing real audio.
// It returns "MP3:" followed by the request text.
type Engine struct {
	// FailOn maps request text to the error Synthesize returns for it.
	FailOn map[string]error

	// OnSynthesize runs before each synthesis (optional).
	OnSynthesize func(req tts.Request)

	mu       sync.Mutex
	requests []tts.Request

	calls  atomic.Int64
	closed atomic.Bool
}

// New creates a mock engine that always succeeds.
func New() *Engine {
	return &Engine{FailOn: map[string]error{}}
}

// Synthesize records the request and returns fake MP3 bytes.
func (e *Engine) Synthesize(ctx context.Context, req tts.Request) ([]byte, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.OnSynthesize != nil {
		e.OnSynthesize(req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := e.FailOn[req.Text]; ok {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineFailure, "mock", "scripted failure", err)
	}
	return []byte(fmt.Sprintf("MP3:%s", req.Text)), nil
}

// Info returns static engine info.
func (e *Engine) Info() tts.EngineInfo {
	return tts.EngineInfo{Name: "mock", Voice: "mock-voice", Language: "en-US", MaxTextSize: 5000}
}

// Validate always succeeds.
func (e *Engine) Validate(ctx context.Context) error { return nil }

// Close marks the engine closed.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

// Calls returns how many times Synthesize ran.
func (e *Engine) Calls() int { return int(e.calls.Load()) }

// Closed reports whether Close was called.
func (e *Engine) Closed() bool { return e.closed.Load() }

// Requests returns a copy of every request seen so far.
func (e *Engine) Requests() []tts.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]tts.Request(nil), e.requests...)
}

var _ tts.Engine = (*Engine)(nil)
