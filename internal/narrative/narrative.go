// Package narrative provides a pluggable interface for text-generation
// providers that turn a progression analysis into a short narrative.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/rcliao/symptrack/internal/model"
)

// Narrator generates a narrative for a progression analysis.
type Narrator interface {
	Narrate(ctx context.Context, req Request) (*Narrative, error)
	Model() string
}

// Request is the structured input handed to a provider.
type Request struct {
	Episode  model.Episode                     `json:"episode"`
	Entry    model.SymptomEntry                `json:"entry"`
	Analysis *model.EpisodeProgressionAnalysis `json:"analysis"`
}

// Narrative is the payload stored in SymptomEntry.AIAnalysis.
type Narrative struct {
	Trend       model.Trend `json:"trend"`
	DayNumber   int         `json:"dayNumber"`
	Summary     string      `json:"summary"`
	Narrative   string      `json:"narrative"`
	Model       string      `json:"model"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Payload encodes n for storage.
func (n *Narrative) Payload() (json.RawMessage, error) {
	return json.Marshal(n)
}

// Prompt renders the request as a plain-text prompt. It only restates the
// structured analysis; no diagnosis is requested.
func Prompt(req Request) string {
	var b strings.Builder
	a := req.Analysis
	fmt.Fprintf(&b, "Write two plain sentences describing how a self-reported illness is progressing. Do not diagnose.\n")
	fmt.Fprintf(&b, "Day %d of the episode that started %s.\n", a.DayNumber, model.FormatDate(req.Episode.StartDate))
	fmt.Fprintf(&b, "Trend: %s.\n", a.Trend)
	fmt.Fprintf(&b, "Today's symptoms: %s.\n", strings.Join(req.Entry.Symptoms, ", "))
	if len(a.SymptomChanges.New) > 0 {
		fmt.Fprintf(&b, "New since last entry: %s.\n", strings.Join(a.SymptomChanges.New, ", "))
	}
	if len(a.SymptomChanges.Resolved) > 0 {
		fmt.Fprintf(&b, "Gone since last entry: %s.\n", strings.Join(a.SymptomChanges.Resolved, ", "))
	}
	for _, c := range a.SymptomChanges.SeverityChanges {
		fmt.Fprintf(&b, "Severity of %s: %s -> %s.\n", c.Symptom, c.Previous, c.Current)
	}
	return b.String()
}

func build(req Request, text, modelName string) *Narrative {
	return &Narrative{
		Trend:       req.Analysis.Trend,
		DayNumber:   req.Analysis.DayNumber,
		Summary:     req.Analysis.ProgressionSummary,
		Narrative:   strings.TrimSpace(text),
		Model:       modelName,
		GeneratedAt: time.Now().UTC(),
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body, out interface{}) error {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- Ollama Provider ---

// OllamaNarrator uses a local Ollama instance.
type OllamaNarrator struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaNarrator creates a narrator using Ollama's generate API.
func NewOllamaNarrator(baseURL, model string) *OllamaNarrator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaNarrator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (n *OllamaNarrator) Narrate(ctx context.Context, req Request) (*Narrative, error) {
	var result ollamaResponse
	err := postJSON(ctx, n.client, n.baseURL+"/api/generate",
		ollamaRequest{Model: n.model, Prompt: Prompt(req)}, &result)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return build(req, result.Response, n.model), nil
}

func (n *OllamaNarrator) Model() string { return n.model }

// --- OpenAI-compatible Provider ---

// OpenAINarrator uses any OpenAI-compatible chat completions API.
type OpenAINarrator struct {
	client *openai.Client
	model  string
}

// NewOpenAINarrator creates a narrator using an OpenAI-compatible API.
func NewOpenAINarrator(baseURL, apiKey, model string) *OpenAINarrator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &OpenAINarrator{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (n *OpenAINarrator) Narrate(ctx context.Context, req Request) (*Narrative, error) {
	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: Prompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	return build(req, resp.Choices[0].Message.Content, n.model), nil
}

func (n *OpenAINarrator) Model() string { return n.model }

// --- Factory ---

// Config selects a provider. An empty Provider disables narratives.
type Config struct {
	Provider string `koanf:"provider"` // "ollama" | "openai" | ""
	URL      string `koanf:"url"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
}

// New creates a narrator from cfg. It returns nil when narratives are disabled.
func New(cfg Config) (Narrator, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaNarrator(cfg.URL, cfg.Model), nil
	case "openai":
		return NewOpenAINarrator(cfg.URL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown narrative provider %q (valid: ollama, openai)", cfg.Provider)
	}
}
