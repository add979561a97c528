package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusDraft      ProjectStatus = "draft"
	ProjectStatusGenerating ProjectStatus = "generating"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusFinalized  ProjectStatus = "finalized"
	ProjectStatusArchived   ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusGenerating, ProjectStatusInProgress,
		ProjectStatusFinalized, ProjectStatusArchived:
		return true
	}
	return false
}

type Project struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	VariantID        *uuid.UUID      `json:"variant_id,omitempty"`
	ExternalJobID    *string         `json:"external_job_id,omitempty"`
	Status           ProjectStatus   `json:"status"`
	CurrentVersionID *uuid.UUID      `json:"current_version_id,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProjectPatch lists the project columns that may change after creation.
// Nil fields are left untouched.
type ProjectPatch struct {
	Name             *string
	Description      *string
	Status           *ProjectStatus
	CurrentVersionID *uuid.UUID
}

type GenerationMetadata struct {
	Kind         GenerationKind `json:"kind,omitempty"`
	RequestID    int64          `json:"request_id,omitempty"`
	Prompt       string         `json:"prompt,omitempty"`
	Provider     string         `json:"provider,omitempty"`
	ModelVersion string         `json:"model_version,omitempty"`
	DurationMs   int64          `json:"duration_ms,omitempty"`
}

type Version struct {
	ID                uuid.UUID           `json:"id"`
	ProjectID         uuid.UUID           `json:"project_id"`
	VersionNumber     int                 `json:"version_number"`
	Name              string              `json:"name"`
	FrontImageURL     *string             `json:"front_image_url,omitempty"`
	BackImageURL      *string             `json:"back_image_url,omitempty"`
	FrontCompositeURL *string             `json:"front_composite_url,omitempty"`
	BackCompositeURL  *string             `json:"back_composite_url,omitempty"`
	Generation        *GenerationMetadata `json:"generation_metadata,omitempty"`
	CreatedBy         uuid.UUID           `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"`
}

// VersionPatch holds the only version fields that are filled in after creation.
type VersionPatch struct {
	FrontImageURL     *string
	BackImageURL      *string
	FrontCompositeURL *string
	BackCompositeURL  *string
}

type LayerType string

const (
	LayerTypeImage LayerType = "image"
	LayerTypeText  LayerType = "text"
)

type LayerPosition struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

type Layer struct {
	ID          uuid.UUID       `json:"id"`
	VersionID   uuid.UUID       `json:"version_id"`
	Type        LayerType       `json:"type"`
	Name        string          `json:"name"`
	ZIndex      int             `json:"z_index"`
	Position    LayerPosition   `json:"position"`
	Visible     bool            `json:"visible"`
	Locked      bool            `json:"locked"`
	Opacity     float64         `json:"opacity"`
	BlendMode   string          `json:"blend_mode"`
	TextContent *string         `json:"text_content,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Style       json.RawMessage `json:"style,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type LayerPatch struct {
	Name        *string
	ZIndex      *int
	Position    *LayerPosition
	Visible     *bool
	Locked      *bool
	Opacity     *float64
	BlendMode   *string
	TextContent *string
	ImageURL    *string
	Style       json.RawMessage
}

// VariantTemplates are the product template images of a catalog variant.
type VariantTemplates struct {
	ID               uuid.UUID `json:"id"`
	FrontTemplateURL *string   `json:"front_template_url,omitempty"`
	BackTemplateURL  *string   `json:"back_template_url,omitempty"`
}

// ProjectView is a project together with its current version and that version's layers.
type ProjectView struct {
	Project        *Project `json:"project"`
	CurrentVersion *Version `json:"current_version,omitempty"`
	Layers         []Layer  `json:"layers"`
}
