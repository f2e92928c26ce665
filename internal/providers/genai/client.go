// Package genai talks to the Gemini generateContent API.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"headshot/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash-exp-image-generation"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client sends the uploaded photos and the style prompt to Gemini. Without an
// API key it renders a deterministic placeholder portrait instead, so local
// and CI runs exercise the whole workflow.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client. A nil HTTP client gets a default one
// without a timeout; the request context bounds the call.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger,
	}
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Synthetic reports whether the client renders placeholders instead of
// calling the API.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// GenerateHeadshot sends images (in order) followed by prompt. Transport and
// API failures come back as *domain.RemoteGenerationError. A response without
// an image is not an error; the caller decides what to show.
func (c *Client) GenerateHeadshot(ctx context.Context, images []domain.UploadedImage, prompt string) (domain.GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.GenerationResult{}, remoteError(err)
	}
	if c.Synthetic() {
		return c.synthetic(images, prompt)
	}

	parts := make([]geminiPart, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: img.MediaType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}})
	}
	parts = append(parts, geminiPart{Text: prompt})

	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		c.logger.Warn().Err(err).Str("model", c.model).Msg("genai: headshot generation failed")
		return domain.GenerationResult{}, remoteError(err)
	}

	result, err := parseResponse(response)
	if err != nil {
		return domain.GenerationResult{}, remoteError(err)
	}
	c.logger.Debug().
		Str("model", c.model).
		Int("images", len(images)).
		Bool("has_image", result.Image != nil).
		Msg("genai: headshot response")
	return result, nil
}

// parseResponse reads the first candidate only. The last inline image wins;
// text parts are joined.
func parseResponse(resp geminiGenerateContentResponse) (domain.GenerationResult, error) {
	var result domain.GenerationResult
	if len(resp.Candidates) == 0 {
		return result, nil
	}
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.InlineData != nil && part.InlineData.Data != "":
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return domain.GenerationResult{}, fmt.Errorf("decode inline data: %w", err)
			}
			mediaType := part.InlineData.MimeType
			if mediaType == "" {
				mediaType = "image/png"
			}
			result.Image = &domain.GeneratedImage{Data: data, MediaType: mediaType}
		case strings.TrimSpace(part.Text) != "":
			texts = append(texts, strings.TrimSpace(part.Text))
		}
	}
	result.Text = strings.Join(texts, "\n")
	return result, nil
}

func remoteError(err error) error {
	var remote *domain.RemoteGenerationError
	if errors.As(err, &remote) {
		return err
	}
	return &domain.RemoteGenerationError{
		Message: "Failed to generate headshot: " + err.Error(),
		Err:     err,
	}
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors quote the request URL; keep only the cause.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
