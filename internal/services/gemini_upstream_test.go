package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// upstreamRequest is the part of a generateContent body the tests inspect.
type upstreamRequest struct {
	SystemInstruction struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type fakeUpstream struct {
	mu       sync.Mutex
	paths    []string
	requests []upstreamRequest
	reply    string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req upstreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.paths = append(f.paths, r.URL.Path)
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(reply))
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// redirectTransport sends every request to the test server instead of the
// public API host.
type redirectTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.base.RoundTrip(out)
}

func newUpstreamService(t *testing.T, upstream *fakeUpstream) *GeminiService {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	httpClient := &http.Client{Transport: &redirectTransport{target: target, base: srv.Client().Transport}}

	return NewGeminiService("test-key", "gemini-2.0-flash", 2, newTestLogger(), option.WithHTTPClient(httpClient))
}

const stopReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"## You are doing well\n- breathe"}]},"finishReason":"STOP"}]}`

func TestGenerateText_SendsPersonaAndPrompt(t *testing.T) {
	upstream := &fakeUpstream{reply: stopReply}
	svc := newUpstreamService(t, upstream)
	defer svc.Close()

	got, err := svc.GenerateText(context.Background(), "I feel anxious")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "## You are doing well\n- breathe" {
		t.Errorf("unexpected text %q", got)
	}

	if upstream.calls() != 1 {
		t.Fatalf("expected one upstream call, got %d", upstream.calls())
	}
	if !strings.HasSuffix(upstream.paths[0], "models/gemini-2.0-flash:generateContent") {
		t.Errorf("unexpected upstream path %q", upstream.paths[0])
	}

	req := upstream.requests[0]
	if len(req.SystemInstruction.Parts) != 1 || req.SystemInstruction.Parts[0].Text != PersonaInstruction {
		t.Errorf("expected persona system instruction, got %+v", req.SystemInstruction)
	}
	if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
		t.Fatalf("expected a single user content, got %+v", req.Contents)
	}
	if req.Contents[0].Role != "user" || req.Contents[0].Parts[0].Text != "I feel anxious" {
		t.Errorf("unexpected user content %+v", req.Contents[0])
	}
}

func TestGenerateText_EmptyCandidates(t *testing.T) {
	upstream := &fakeUpstream{reply: `{"candidates":[]}`}
	svc := newUpstreamService(t, upstream)
	defer svc.Close()

	_, err := svc.GenerateText(context.Background(), "hello")
	if !errors.Is(err, ErrEmptyGeneration) {
		t.Fatalf("expected ErrEmptyGeneration, got %v", err)
	}
}

func TestGenerateText_ReusesClient(t *testing.T) {
	upstream := &fakeUpstream{reply: stopReply}
	svc := newUpstreamService(t, upstream)
	defer svc.Close()

	if _, err := svc.GenerateText(context.Background(), "one"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	first := svc.client

	if _, err := svc.GenerateText(context.Background(), "two"); err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if first == nil || svc.client != first {
		t.Fatal("expected the client created on first use to be reused")
	}
	if upstream.calls() != 2 {
		t.Fatalf("expected two upstream calls, got %d", upstream.calls())
	}
}

func TestClose_BeforeFirstUse(t *testing.T) {
	upstream := &fakeUpstream{reply: stopReply}
	svc := newUpstreamService(t, upstream)

	svc.Close()

	_, err := svc.GenerateText(context.Background(), "hello")
	if !errors.Is(err, ErrServiceClosed) {
		t.Fatalf("expected ErrServiceClosed, got %v", err)
	}
	if svc.client != nil {
		t.Fatal("expected no client to be created after Close")
	}
	if upstream.calls() != 0 {
		t.Fatalf("expected no upstream calls, got %d", upstream.calls())
	}
}

func TestClose_AfterUse(t *testing.T) {
	upstream := &fakeUpstream{reply: stopReply}
	svc := newUpstreamService(t, upstream)

	if _, err := svc.GenerateText(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Close()

	_, err := svc.GenerateText(context.Background(), "again")
	if !errors.Is(err, ErrServiceClosed) {
		t.Fatalf("expected ErrServiceClosed, got %v", err)
	}
	if upstream.calls() != 1 {
		t.Fatalf("expected one upstream call, got %d", upstream.calls())
	}
}

func TestClose_ConcurrentWithFirstUse(t *testing.T) {
	upstream := &fakeUpstream{reply: stopReply}
	svc := newUpstreamService(t, upstream)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.generativeModel()
	}()
	go func() {
		defer wg.Done()
		svc.Close()
	}()
	wg.Wait()

	// Either the client was built before Close claimed the once, or Close
	// claimed it and no client will ever be built.
	if svc.client == nil && !errors.Is(svc.initErr, ErrServiceClosed) {
		t.Fatalf("expected a client or a closed service, got initErr %v", svc.initErr)
	}
	if _, err := svc.GenerateText(context.Background(), "later"); !errors.Is(err, ErrServiceClosed) {
		t.Fatalf("expected ErrServiceClosed after Close, got %v", err)
	}
}
