package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const ProviderName = "openai-images"

const maxImageBytes = 25 << 20

// Client talks to an OpenAI compatible images API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	imageSize  string
	httpClient *http.Client
	backoffs   []time.Duration
	maxRetries int
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = strings.TrimSpace(model)
		}
	}
}

func WithImageSize(size string) Option {
	return func(c *Client) {
		if strings.TrimSpace(size) != "" {
			c.imageSize = strings.TrimSpace(size)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBackoffs replaces the sleep schedule between retries.
func WithBackoffs(backoffs ...time.Duration) Option {
	return func(c *Client) {
		c.backoffs = backoffs
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     "gpt-image-1",
		imageSize: "1024x1024",
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
		backoffs:   []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

type imagesGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateBaseDesign produces the front and back artwork of a new design.
func (c *Client) GenerateBaseDesign(ctx context.Context, in BaseDesignInput) (*BaseDesignResult, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	start := time.Now()

	var front, back string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		front, err = c.generateSide(gctx, BuildBasePrompt(in, SideFront))
		if err != nil {
			return fmt.Errorf("failed to generate front design: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		back, err = c.generateSide(gctx, BuildBasePrompt(in, SideBack))
		if err != nil {
			return fmt.Errorf("failed to generate back design: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BaseDesignResult{
		FrontImageBase64: front,
		BackImageBase64:  back,
		Provider:         ProviderName,
		ModelVersion:     c.model,
		DurationMs:       time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) generateSide(ctx context.Context, prompt string) (string, error) {
	body := imagesGenerationRequest{
		Model:  c.model,
		Prompt: prompt,
		N:      1,
		Size:   c.imageSize,
	}
	// Only the dall-e models accept response_format; gpt-image models always answer with b64_json.
	if strings.HasPrefix(c.model, "dall-e") {
		body.ResponseFormat = "b64_json"
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp imagesResponse
	err = c.RetryWithBackoff(ctx, func() error {
		return c.do(ctx, "images/generations", "application/json", bytes.NewReader(jsonData), &resp)
	}, c.maxRetries)
	if err != nil {
		return "", err
	}
	return c.firstImage(ctx, resp)
}

// GenerateTypographyIteration applies new text to an existing design.
func (c *Client) GenerateTypographyIteration(ctx context.Context, in TypographyInput) (*TypographyResult, error) {
	if strings.TrimSpace(in.TextContent) == "" {
		return nil, errors.New("text content is required")
	}
	start := time.Now()

	var imageData []byte
	switch {
	case strings.TrimSpace(in.BaseImageBase64) != "":
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(in.BaseImageBase64))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base image: %w", err)
		}
		imageData = decoded
	case strings.TrimSpace(in.BaseImageURL) != "":
		downloaded, err := c.DownloadFile(ctx, strings.TrimSpace(in.BaseImageURL))
		if err != nil {
			return nil, fmt.Errorf("failed to download base image: %w", err)
		}
		imageData = downloaded
	default:
		return nil, errors.New("base image is required")
	}

	prompt := BuildTypographyPrompt(in)

	var resp imagesResponse
	err := c.RetryWithBackoff(ctx, func() error {
		// The multipart body is consumed by each attempt, so it is rebuilt every time.
		body, contentType, err := c.editForm(prompt, imageData)
		if err != nil {
			return err
		}
		return c.do(ctx, "images/edits", contentType, body, &resp)
	}, c.maxRetries)
	if err != nil {
		return nil, err
	}

	modified, err := c.firstImage(ctx, resp)
	if err != nil {
		return nil, err
	}

	return &TypographyResult{
		ModifiedImageBase64: modified,
		Provider:            ProviderName,
		DurationMs:          time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) editForm(prompt string, imageData []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":  c.model,
		"prompt": prompt,
		"n":      "1",
		"size":   c.imageSize,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="base.png"`)
	header.Set("Content-Type", "image/png")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Client) firstImage(ctx context.Context, resp imagesResponse) (string, error) {
	if len(resp.Data) == 0 {
		return "", errors.New("no image returned")
	}
	item := resp.Data[0]
	if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
		return b64, nil
	}
	if url := strings.TrimSpace(item.URL); url != "" {
		data, err := c.DownloadFile(ctx, url)
		if err != nil {
			return "", fmt.Errorf("failed to download generated image: %w", err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	}
	return "", errors.New("image response missing b64_json and url")
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out interface{}) error {
	url := strings.TrimSuffix(c.baseURL, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes*2))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil {
			perr.Message = parsed.Error.Message
		}
		return perr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) DownloadFile(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to download file: status %d, body: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// RetryWithBackoff executes a function with exponential backoff retry logic.
// Provider errors that cannot succeed on retry are returned immediately.
func (c *Client) RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perr *ProviderError
		if errors.As(err, &perr) && !perr.Retryable() {
			return err
		}

		lastErr = err
		if i < len(c.backoffs) && i < maxRetries-1 {
			select {
			case <-time.After(c.backoffs[i]):
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
