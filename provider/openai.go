package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ZaguanLabs/autotrans"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when OpenAIConfig.Model is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider translates through an OpenAI-compatible chat completion API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates a batch of texts with one chat completion.
func (p *OpenAIProvider) Translate(ctx context.Context, req autotrans.ProviderRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &autotrans.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &autotrans.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req autotrans.ProviderRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = autotrans.DefaultSourceLang
	}

	sourceName := autotrans.GetLanguageName(sourceLang)
	targetName := autotrans.GetLanguageName(req.TargetLang)
	styleDesc := autotrans.GetStyleDescription(req.Style)

	contextText := "The content is the interface of a teaching assistant used by school teachers."
	if req.Context != "" {
		contextText = fmt.Sprintf("The content is for: %s. Adapt the tone to be appropriate for this context.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are an expert translator from %s to %s, writing like an educated native speaker.

# Context
%s

# Register
%s

# Task
Translate each provided text into %s.

# Rules
- Keep the meaning. Rephrase where a literal rendering would sound unnatural.
- Do NOT translate HTML tags, URLs, email addresses, or content inside backticks.
- Do NOT translate placeholders such as {{name}}, {count}, %%s or $1.
- Keep leading and trailing whitespace of every text.
- Labels and button captions stay short.`, sourceName, targetName, contextText, styleDesc, targetName)

	if direction := autotrans.GetDirection(req.TargetLang); direction == "rtl" {
		b.WriteString("\n- The target language is written right to left. Do not add direction marks.")
	}

	if len(req.Glossary) > 0 {
		b.WriteString("\n\n# Glossary\nPrefer these translations:")
		terms := make([]string, 0, len(req.Glossary))
		for term := range req.Glossary {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			fmt.Fprintf(&b, "\n- %q → %s", term, req.Glossary[term])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		b.WriteString("\n\n# Exclusions\nKeep these terms exactly as they appear:\n- ")
		b.WriteString(strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Return a JSON object with a single key "translations" holding an array of strings in the same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }`)

	return b.String()
}

func (p *OpenAIProvider) buildUserMessage(req autotrans.ProviderRequest) string {
	hasContexts := false
	for _, c := range req.TextContexts {
		if c != "" {
			hasContexts = true
			break
		}
	}

	if !hasContexts {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")

	var objResult map[string]any
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if translations, ok := objResult["translations"].([]any); ok {
			return toStringSlice(translations, expectedCount)
		}

		// Some models pick their own key
		for _, v := range objResult {
			if arr, ok := v.([]any); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	var arrResult []any
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, &autotrans.ProviderError{
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

func toStringSlice(arr []any, expectedCount int) ([]string, error) {
	if len(arr) != expectedCount {
		return nil, &autotrans.CountMismatchError{
			Expected: expectedCount,
			Got:      len(arr),
		}
	}

	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}
	return result, nil
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"rate limit", "timeout", "connection refused", "temporary"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

var _ autotrans.Provider = (*OpenAIProvider)(nil)
