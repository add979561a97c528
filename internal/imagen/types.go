package imagen

import (
	"fmt"
	"strings"
)

type BaseDesignInput struct {
	Prompt         string
	Style          string
	ProductType    string
	ColorPalette   string
	Mood           string
	NegativePrompt string
}

type BaseDesignResult struct {
	FrontImageBase64 string
	BackImageBase64  string
	Provider         string
	ModelVersion     string
	DurationMs       int64
}

// TypographyInput modifies an existing raster. Exactly one of BaseImageBase64
// and BaseImageURL is expected to be set.
type TypographyInput struct {
	BaseImageBase64 string
	BaseImageURL    string
	TextContent     string
	FontFamily      string
	FontSize        int
	TextColor       string
	FocusArea       string
	Style           string
}

type TypographyResult struct {
	ModifiedImageBase64 string
	Provider            string
	DurationMs          int64
}

// ProviderError is returned for non-2xx provider responses.
type ProviderError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// UserMessage is safe to show to end users.
func (e *ProviderError) UserMessage() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("image provider rejected the request (status %d)", e.StatusCode)
	}
	return "image provider rejected the request: " + msg
}

// Retryable reports whether the same request may succeed later.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
