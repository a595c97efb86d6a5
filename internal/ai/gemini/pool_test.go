package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type stubMember struct {
	name  string
	err   error
	calls int
}

func (s *stubMember) GenerateContent(context.Context, string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.name, nil
}

func (s *stubMember) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return make([][]float32, len(texts)), nil
}

func TestPoolRoundRobin(t *testing.T) {
	a, b := &stubMember{name: "a"}, &stubMember{name: "b"}
	pool := newPool([]member{a, b}, "m", zap.NewNop())

	var got []string
	for i := 0; i < 4; i++ {
		out, err := pool.GenerateContent(context.Background(), "p")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, out)
	}

	want := []string{"a", "b", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPoolRotatesOnQuotaError(t *testing.T) {
	quota := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}
	a, b := &stubMember{name: "a", err: quota}, &stubMember{name: "b"}
	pool := newPool([]member{a, b}, "m", zap.NewNop())

	out, err := pool.GenerateContent(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "b" {
		t.Fatalf("expected fallback key, got %q", out)
	}
}

func TestPoolReturnsOtherErrorsImmediately(t *testing.T) {
	boom := errors.New("boom")
	a, b := &stubMember{name: "a", err: boom}, &stubMember{name: "b"}
	pool := newPool([]member{a, b}, "m", zap.NewNop())

	_, err := pool.Embed(context.Background(), []string{"x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if b.calls != 0 {
		t.Fatalf("expected second key untouched, got %d calls", b.calls)
	}
}

func TestPoolAllKeysExhausted(t *testing.T) {
	quota := genai.APIError{Code: http.StatusTooManyRequests}
	pool := newPool([]member{&stubMember{err: quota}, &stubMember{err: quota}}, "m", zap.NewNop())

	_, err := pool.GenerateContent(context.Background(), "p")
	if !IsQuotaExhausted(err) {
		t.Fatalf("expected quota error, got %v", err)
	}
}
