package provider

import (
	"context"
	"sync"

	"github.com/ZaguanLabs/autotrans"
)

// MockProvider is an offline provider for tests and demos.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	Err          error             // returned by every call when set

	mu          sync.Mutex
	callCount   int
	lastRequest *autotrans.ProviderRequest
}

// NewMockProvider creates a new mock provider with a few Hindi translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"Hello":        "नमस्ते",
			"Welcome":      "स्वागत है",
			"Dashboard":    "डैशबोर्ड",
			"Save":         "सहेजें",
			"Cancel":       "रद्द करें",
			"Good morning": "सुप्रभात",
		},
	}
}

// Translate returns canned translations. Unknown texts come back bracketed
// and tagged with the target language.
func (m *MockProvider) Translate(ctx context.Context, req autotrans.ProviderRequest) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastRequest = &req
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = "[" + req.TargetLang + "] " + text
		}
	}

	return results, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastRequest returns the last request received, or nil.
func (m *MockProvider) LastRequest() *autotrans.ProviderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// SetErr changes the error returned by later calls.
func (m *MockProvider) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastRequest = nil
}

var _ autotrans.Provider = (*MockProvider)(nil)
