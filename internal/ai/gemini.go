package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateRequest is the provider-shaped payload for one generation call:
// a user prompt, an optional system instruction, and optional inline images.
// Images are opaque base64 strings with a mime type; the core never decodes
// pixel data.
type GenerateRequest struct {
	System       string
	Prompt       string
	Images       []ImagePart
	JSONResponse bool
}

// ImagePart is one inline image attachment.
type ImagePart struct {
	MIMEType string
	Data     string // raw base64, no data: prefix
}

// GeminiTransport POSTs generateContent requests to the Gemini REST API.
// It is deliberately a dumb pipe: no retries, no model selection — the
// gauntlet owns failure policy.
type GeminiTransport struct {
	apiKey      string
	baseURL     string
	temperature float32
	httpClient  *http.Client
	logger      *slog.Logger
}

// TransportConfig configures the Gemini transport.
type TransportConfig struct {
	APIKey      string
	BaseURL     string // default https://generativelanguage.googleapis.com/v1beta
	Temperature float32
	Timeout     time.Duration
}

// NewGeminiTransport builds the transport. An empty API key is allowed here;
// the gauntlet fails fast per call instead, so local fallbacks keep working.
func NewGeminiTransport(cfg TransportConfig, logger *slog.Logger) *GeminiTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiTransport{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// HasCredential reports whether an API key is configured.
func (t *GeminiTransport) HasCredential() bool {
	return t.apiKey != ""
}

// request/response wire shapes for generateContent.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate performs one generateContent call against the named model and
// returns the concatenated text parts of the first candidate. Non-2xx
// statuses come back as *StatusError for the gauntlet to classify.
func (t *GeminiTransport) Generate(ctx context.Context, model string, req GenerateRequest) (string, error) {
	reqID := uuid.New().String()
	start := time.Now()

	parts := make([]geminiPart, 0, 1+len(req.Images))
	parts = append(parts, geminiPart{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MIMEType: img.MIMEType, Data: img.Data}})
	}

	body := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{Temperature: t.temperature},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.JSONResponse {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}
	sanitizeForModel(model, &body)

	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", t.baseURL, model, t.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	t.logger.Info("ai.gemini.request",
		"req_id", reqID,
		"model", model,
		"prompt_len", len(req.Prompt),
		"images", len(req.Images),
	)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.logger.Error("ai.gemini.send_error", "req_id", reqID, "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			t.logger.Warn("ai.gemini.body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	t.logger.Info("ai.gemini.response",
		"req_id", reqID,
		"model", model,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", &StatusError{Model: model, Status: resp.StatusCode, Body: truncateBody(raw)}
	}

	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty candidate text (finish_reason=%s)", out.Candidates[0].FinishReason)
	}
	return text, nil
}

// sanitizeForModel strips request fields that older model generations
// reject, so a cascade mixing generations never 400s on shape alone.
// gemini-1.x rejects responseMimeType on some endpoints.
func sanitizeForModel(model string, body *geminiRequest) {
	if strings.Contains(model, "gemini-1.") {
		body.GenerationConfig.ResponseMimeType = ""
	}
}

func truncateBody(raw []byte) string {
	const max = 512
	s := string(raw)
	if len(s) > max {
		return s[:max] + "…"
	}
	return s
}
