package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type GenerationKind string

const (
	GenerationKindBase       GenerationKind = "base_generation"
	GenerationKindTypography GenerationKind = "typography_iteration"
)

func (k GenerationKind) Valid() bool {
	return k == GenerationKindBase || k == GenerationKindTypography
}

type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
	GenerationStatusCancelled  GenerationStatus = "cancelled"
)

// TerminalGenerationStatuses never transition again.
var TerminalGenerationStatuses = []GenerationStatus{
	GenerationStatusCompleted,
	GenerationStatusFailed,
	GenerationStatusCancelled,
}

func (s GenerationStatus) IsTerminal() bool {
	for _, t := range TerminalGenerationStatuses {
		if s == t {
			return true
		}
	}
	return false
}

type GenerationRequest struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	ProjectID    uuid.UUID        `json:"project_id"`
	UserID       uuid.UUID        `json:"user_id"`
	Kind         GenerationKind   `json:"kind"`
	Config       json.RawMessage  `json:"config"`
	Status       GenerationStatus `json:"status"`
	Progress     int              `json:"progress"`
	VersionID    *uuid.UUID       `json:"version_id,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type GenerationRequestPatch struct {
	Status       *GenerationStatus
	Progress     *int
	VersionID    *uuid.UUID
	ErrorMessage *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// BaseGenerationConfig is the input of a base_generation request.
type BaseGenerationConfig struct {
	Prompt         string `json:"prompt" validate:"required,max=2000"`
	Style          string `json:"style,omitempty" validate:"max=200"`
	ProductType    string `json:"product_type,omitempty" validate:"max=200"`
	ColorPalette   string `json:"color_palette,omitempty" validate:"max=200"`
	Mood           string `json:"mood,omitempty" validate:"max=200"`
	NegativePrompt string `json:"negative_prompt,omitempty" validate:"max=1000"`
}

// TypographyConfig is the input of a typography_iteration request.
type TypographyConfig struct {
	TextContent string `json:"text_content" validate:"required,max=500"`
	FontFamily  string `json:"font_family,omitempty" validate:"max=100"`
	FontSize    int    `json:"font_size,omitempty" validate:"omitempty,gt=0,lte=1000"`
	TextColor   string `json:"text_color,omitempty" validate:"omitempty,hexcolor"`
	FocusArea   string `json:"focus_area,omitempty" validate:"max=200"`
	Style       string `json:"style,omitempty" validate:"max=200"`
}
