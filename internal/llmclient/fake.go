package llmclient

import (
	"context"
	"sync"
)

// Step is one scripted reply of a FakeClient.
type Step struct {
	Content string
	Err     error
}

// FakeClient replays scripted steps in order, repeating the last one once the
// script runs out. It records every request it receives.
type FakeClient struct {
	mu       sync.Mutex
	name     string
	steps    []Step
	calls    int
	requests []Request
}

func NewFakeClient(steps ...Step) *FakeClient {
	return &FakeClient{name: "fake", steps: steps}
}

// Reply is shorthand for a fake that always returns content.
func Reply(content string) *FakeClient { return NewFakeClient(Step{Content: content}) }

// Failing is shorthand for a fake that always returns err.
func Failing(err error) *FakeClient { return NewFakeClient(Step{Err: err}) }

func (f *FakeClient) Name() string { return f.name }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, req Request) (*Response, error) {
	return f.next(ctx, req)
}

func (f *FakeClient) GenerateStructured(ctx context.Context, req Request) (*Response, error) {
	return f.next(ctx, req)
}

func (f *FakeClient) TestConnection(ctx context.Context) bool {
	return Probe(ctx, f)
}

// Calls reports how many generations were requested.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Requests returns a copy of the received requests.
func (f *FakeClient) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *FakeClient) next(ctx context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	idx := f.calls
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, NewPermanentError(err)
	}
	if len(f.steps) == 0 {
		return &Response{Content: "{}"}, nil
	}
	if idx >= len(f.steps) {
		idx = len(f.steps) - 1
	}
	s := f.steps[idx]
	if s.Err != nil {
		return nil, s.Err
	}
	return &Response{Content: s.Content}, nil
}
