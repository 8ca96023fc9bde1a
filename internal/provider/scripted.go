package provider

import (
	"context"
	"sync"

	"brickyard/internal/errors"
)

// ScriptedCompleter replays canned responses in order and records every
// prompt it receives. It backs tests that need to assert on prompt content,
// in particular that retry feedback actually reaches the next attempt.
type ScriptedCompleter struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	prompts   []string
	calls     int
}

// ScriptedResponse is one canned reply: either content or an error
type ScriptedResponse struct {
	Content string
	Err     error
}

// NewScriptedCompleter creates a completer that replays the given responses.
// Calls past the end of the script fail with a provider error.
func NewScriptedCompleter(responses ...ScriptedResponse) *ScriptedCompleter {
	return &ScriptedCompleter{responses: responses}
}

// Respond is a convenience constructor from plain content strings
func Respond(contents ...string) *ScriptedCompleter {
	responses := make([]ScriptedResponse, len(contents))
	for i, c := range contents {
		responses[i] = ScriptedResponse{Content: c}
	}
	return NewScriptedCompleter(responses...)
}

// Name implements Completer
func (s *ScriptedCompleter) Name() string {
	return "scripted"
}

// Complete implements Completer
func (s *ScriptedCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, req.Prompt)
	if s.calls >= len(s.responses) {
		return nil, errors.New(errors.ErrCodeProviderUnavailable, "scripted completer is out of responses")
	}
	resp := s.responses[s.calls]
	s.calls++

	if resp.Err != nil {
		return nil, resp.Err
	}
	return &CompletionResponse{Content: resp.Content, Model: "scripted"}, nil
}

// Calls returns how many completions were requested
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Prompts returns a copy of every prompt received, in order
func (s *ScriptedCompleter) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" if none
func (s *ScriptedCompleter) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

var _ Completer = (*ScriptedCompleter)(nil)
