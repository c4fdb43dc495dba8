package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZaguanLabs/autotrans"
	"github.com/ZaguanLabs/autotrans/cache"
	"github.com/ZaguanLabs/autotrans/provider"
	"github.com/ZaguanLabs/autotrans/transport"
	"github.com/labstack/echo/v4"
)

func newTestServer(mock *provider.MockProvider) Server {
	return NewServer(&Options{
		Service:        NewService(mock, WithCache(cache.NewInMemoryCache())),
		DisableReqLogs: true,
	})
}

func doRequest(srv Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServer_TranslateText(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	rec := doRequest(srv, http.MethodPost, TranslateTextPath,
		[]byte(`{"text":"Hello","target_language":"hi","source_language":"en"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp autotrans.TextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TranslatedText == nil || *resp.TranslatedText != "नमस्ते" {
		t.Errorf("unexpected response %s", rec.Body)
	}
}

func TestServer_TranslateBatch(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	rec := doRequest(srv, http.MethodPost, TranslateBatchPath,
		[]byte(`{"texts":["Hello","123","Welcome"],"target_language":"hi"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var resp autotrans.BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	assertTexts(t, resp.TranslatedTexts, []string{"नमस्ते", "123", "स्वागत है"})
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed text body", TranslateTextPath, `{"text":`},
		{"missing text", TranslateTextPath, `{"target_language":"hi"}`},
		{"missing target", TranslateTextPath, `{"text":"Hello"}`},
		{"malformed batch body", TranslateBatchPath, `[1,2]`},
		{"missing texts", TranslateBatchPath, `{"target_language":"hi"}`},
		{"blank target", TranslateBatchPath, `{"texts":["Hello"],"target_language":" "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, tt.path, []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("expected JSON error body, got %s", rec.Body)
			}
		})
	}
}

func TestServer_ProviderFailure(t *testing.T) {
	mock := provider.NewMockProvider()
	mock.Err = &autotrans.ProviderError{Message: "quota exceeded"}
	srv := newTestServer(mock)

	for _, path := range []string{TranslateTextPath, TranslateBatchPath} {
		rec := doRequest(srv, http.MethodPost, path,
			[]byte(`{"text":"Hello","texts":["Hello"],"target_language":"hi"}`))
		if rec.Code != http.StatusBadGateway {
			t.Errorf("%s: status = %d, want 502", path, rec.Code)
		}
	}
}

func TestServer_Languages(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	rec := doRequest(srv, http.MethodGet, LanguagesPath, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Languages []autotrans.Language `json:"languages"`
		Default   string               `json:"default"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Languages) != len(autotrans.SupportedLanguages) || resp.Default != "en" {
		t.Errorf("unexpected languages response %s", rec.Body)
	}
}

func TestServer_DetectLanguage(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	rec := doRequest(srv, http.MethodPost, DetectPath, []byte(`{"text":"مرحبا"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp detectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Language != "ar" || resp.Direction != "rtl" || resp.Name != "Arabic" {
		t.Errorf("unexpected detection %+v", resp)
	}
}

func TestServer_HealthAndNotFound(t *testing.T) {
	srv := newTestServer(provider.NewMockProvider())

	rec := doRequest(srv, http.MethodGet, HealthPath+"/", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}

	rec = doRequest(srv, http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
}

func TestServer_WithHTTPBackend(t *testing.T) {
	mock := provider.NewMockProvider()
	ts := httptest.NewServer(newTestServer(mock))
	defer ts.Close()

	backend := transport.NewHTTPBackend(ts.URL)
	client := autotrans.NewClient(backend)
	ctx := context.Background()

	got := client.TranslateBatch(ctx, []string{"Hello", "Save", "7"}, "hi")
	assertTexts(t, got, []string{"नमस्ते", "सहेजें", "7"})

	if got := client.TranslateText(ctx, "Dashboard", "hi"); got != "डैशबोर्ड" {
		t.Errorf("TranslateText = %q", got)
	}

	// Upstream failures surface as 502 and the client keeps the original
	mock.Err = errors.New("upstream down")
	_, err := backend.TranslateText(ctx, autotrans.TextRequest{Text: "Cancel", TargetLang: "hi"})
	var berr *autotrans.BackendError
	if !errors.As(err, &berr) || berr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502 BackendError, got %v", err)
	}
	if got := client.TranslateText(ctx, "Cancel", "hi"); got != "Cancel" {
		t.Errorf("client should fall back to the original, got %q", got)
	}
}
