package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Name        string `json:"name" example:"Summer drop tee"`
	Description string `json:"description,omitempty"`
	// VariantID links the project to a catalog variant whose templates are used for previews.
	VariantID     *uuid.UUID `json:"variant_id,omitempty"`
	ExternalJobID *string    `json:"external_job_id,omitempty"`
	// Optional metadata to store with project
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateProjectRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty" example:"finalized"`
}

type CreateVersionRequest struct {
	Name          string  `json:"name,omitempty"`
	FrontImageURL *string `json:"front_image_url,omitempty"`
	BackImageURL  *string `json:"back_image_url,omitempty"`
	// CopyFromVersionID duplicates every layer of that version into the new one.
	CopyFromVersionID *uuid.UUID `json:"copy_from_version_id,omitempty"`
}

type CreateLayerRequest struct {
	Type        LayerType       `json:"type" binding:"required" example:"text"`
	Name        string          `json:"name,omitempty"`
	ZIndex      int             `json:"z_index"`
	Position    LayerPosition   `json:"position"`
	Visible     *bool           `json:"visible,omitempty"`
	Locked      bool            `json:"locked"`
	Opacity     *float64        `json:"opacity,omitempty"`
	BlendMode   string          `json:"blend_mode,omitempty"`
	TextContent *string         `json:"text_content,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Style       json.RawMessage `json:"style,omitempty" swaggertype:"object"`
}

type UpdateLayerRequest struct {
	Name        *string         `json:"name,omitempty"`
	ZIndex      *int            `json:"z_index,omitempty"`
	Position    *LayerPosition  `json:"position,omitempty"`
	Visible     *bool           `json:"visible,omitempty"`
	Locked      *bool           `json:"locked,omitempty"`
	Opacity     *float64        `json:"opacity,omitempty"`
	BlendMode   *string         `json:"blend_mode,omitempty"`
	TextContent *string         `json:"text_content,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
	Style       json.RawMessage `json:"style,omitempty" swaggertype:"object"`
}

type GenerateRequest struct {
	// Kind is base_generation or typography_iteration.
	Kind GenerationKind `json:"kind" binding:"required" example:"base_generation"`
	// Config is a BaseGenerationConfig or a TypographyConfig depending on Kind.
	Config json.RawMessage `json:"config" swaggertype:"object"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
