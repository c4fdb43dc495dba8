package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/ZaguanLabs/autotrans"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, cleanup, err := New(ctx, Config{Name: "mock"})
	if err != nil {
		t.Fatalf("New(mock) failed: %v", err)
	}
	if _, ok := p.(*MockProvider); !ok {
		t.Errorf("expected *MockProvider, got %T", p)
	}
	if err := cleanup(); err != nil {
		t.Errorf("cleanup failed: %v", err)
	}

	p, _, err = New(ctx, Config{APIKey: "test"})
	if err != nil {
		t.Fatalf("New(default) failed: %v", err)
	}
	if _, ok := p.(*OpenAIProvider); !ok {
		t.Errorf("default provider should be OpenAI, got %T", p)
	}

	p, _, err = New(ctx, Config{Name: "MOCK", Retries: 2, RequestsPerMinute: 120})
	if err != nil {
		t.Fatalf("New(wrapped) failed: %v", err)
	}
	if _, ok := p.(*autotrans.RetryableProvider); !ok {
		t.Errorf("expected retries to wrap the provider, got %T", p)
	}

	if _, _, err := New(ctx, Config{Name: "babelfish"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	result, err := m.Translate(context.Background(), autotrans.ProviderRequest{
		Texts:      []string{"Hello", "Unknown text"},
		TargetLang: "hi",
	})
	if err != nil {
		t.Fatalf("MockProvider.Translate failed: %v", err)
	}

	if result[0] != "नमस्ते" {
		t.Errorf("Expected 'नमस्ते', got %q", result[0])
	}
	if result[1] != "[hi] Unknown text" {
		t.Errorf("Expected '[hi] Unknown text', got %q", result[1])
	}
	if m.CallCount() != 1 {
		t.Errorf("Expected CallCount 1, got %d", m.CallCount())
	}
	if m.LastRequest() == nil || m.LastRequest().TargetLang != "hi" {
		t.Errorf("LastRequest not recorded: %+v", m.LastRequest())
	}

	m.Reset()
	if m.CallCount() != 0 || m.LastRequest() != nil {
		t.Error("Reset should clear call state")
	}
}

func TestMockProvider_Err(t *testing.T) {
	m := NewMockProvider()
	m.Err = &autotrans.ProviderError{Message: "down", Retryable: true}

	_, err := m.Translate(context.Background(), autotrans.ProviderRequest{Texts: []string{"Hello"}})
	var perr *autotrans.ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("expected configured error, got %v", err)
	}
}
