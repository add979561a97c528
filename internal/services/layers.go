package services

import (
	"context"
	"encoding/json"
	"strings"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/models"

	"github.com/google/uuid"
)

const defaultBlendMode = "normal"

var blendModes = map[string]bool{
	"normal": true, "multiply": true, "screen": true, "overlay": true,
	"darken": true, "lighten": true, "color-dodge": true, "color-burn": true,
	"hard-light": true, "soft-light": true, "difference": true, "exclusion": true,
}

// versionForLayers resolves a version of an owned project. Layers of archived
// projects are read-only.
func (m *VersionManager) versionForLayers(ctx context.Context, userID, projectID, versionID uuid.UUID, write bool) (*models.Version, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if write && project.Status == models.ProjectStatusArchived {
		return nil, apperr.Conflict("project is archived")
	}
	return m.versionInProject(ctx, project.ID, versionID)
}

func (m *VersionManager) layerInProject(ctx context.Context, userID, projectID, layerID uuid.UUID) (*models.Layer, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return nil, apperr.Conflict("project is archived")
	}
	layer, err := m.store.GetLayer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	if _, err := m.versionInProject(ctx, project.ID, layer.VersionID); err != nil {
		return nil, apperr.NotFound("layer")
	}
	return layer, nil
}

// ListLayers returns the layers of a version ordered by z-index.
func (m *VersionManager) ListLayers(ctx context.Context, userID, projectID, versionID uuid.UUID) ([]models.Layer, error) {
	version, err := m.versionForLayers(ctx, userID, projectID, versionID, false)
	if err != nil {
		return nil, err
	}
	return m.store.ListLayersByVersion(ctx, version.ID)
}

func (m *VersionManager) CreateLayer(ctx context.Context, userID, projectID, versionID uuid.UUID, req models.CreateLayerRequest) (*models.Layer, error) {
	version, err := m.versionForLayers(ctx, userID, projectID, versionID, true)
	if err != nil {
		return nil, err
	}

	layer := &models.Layer{
		VersionID:   version.ID,
		Type:        req.Type,
		Name:        strings.TrimSpace(req.Name),
		ZIndex:      req.ZIndex,
		Position:    req.Position,
		Visible:     true,
		Locked:      req.Locked,
		Opacity:     1,
		BlendMode:   defaultBlendMode,
		TextContent: req.TextContent,
		ImageURL:    trimmedOrNil(req.ImageURL),
		Style:       req.Style,
	}
	if req.Visible != nil {
		layer.Visible = *req.Visible
	}
	if req.Opacity != nil {
		layer.Opacity = *req.Opacity
	}
	if mode := strings.TrimSpace(req.BlendMode); mode != "" {
		layer.BlendMode = mode
	}
	if layer.Name == "" {
		layer.Name = defaultLayerName(layer)
	}

	if err := validateLayer(layer); err != nil {
		return nil, err
	}
	return m.store.CreateLayer(ctx, layer)
}

// UpdateLayer applies a partial update. The z-index is stored as given; other
// layers are never renumbered.
func (m *VersionManager) UpdateLayer(ctx context.Context, userID, projectID, layerID uuid.UUID, req models.UpdateLayerRequest) (*models.Layer, error) {
	layer, err := m.layerInProject(ctx, userID, projectID, layerID)
	if err != nil {
		return nil, err
	}

	patch := models.LayerPatch{
		ZIndex:      req.ZIndex,
		Position:    req.Position,
		Visible:     req.Visible,
		Locked:      req.Locked,
		Opacity:     req.Opacity,
		TextContent: req.TextContent,
		Style:       req.Style,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.BlendMode != nil {
		mode := strings.TrimSpace(*req.BlendMode)
		patch.BlendMode = &mode
	}
	if req.ImageURL != nil {
		url := strings.TrimSpace(*req.ImageURL)
		patch.ImageURL = &url
	}

	// Validate the layer as it will look after the patch.
	preview := *layer
	applyLayerPatch(&preview, patch)
	if err := validateLayer(&preview); err != nil {
		return nil, err
	}

	return m.store.UpdateLayer(ctx, layer.ID, patch)
}

func (m *VersionManager) DeleteLayer(ctx context.Context, userID, projectID, layerID uuid.UUID) error {
	layer, err := m.layerInProject(ctx, userID, projectID, layerID)
	if err != nil {
		return err
	}
	return m.store.DeleteLayer(ctx, layer.ID)
}

func validateLayer(l *models.Layer) error {
	switch l.Type {
	case models.LayerTypeText:
		if l.TextContent == nil || strings.TrimSpace(*l.TextContent) == "" {
			return apperr.Validation("text layers require text_content")
		}
	case models.LayerTypeImage:
		if l.ImageURL == nil || *l.ImageURL == "" {
			return apperr.Validation("image layers require image_url")
		}
	default:
		return apperr.Validation("type must be image or text")
	}
	if l.Opacity < 0 || l.Opacity > 1 {
		return apperr.Validation("opacity must be between 0 and 1")
	}
	if !blendModes[l.BlendMode] {
		return apperr.Validation("unsupported blend_mode %q", l.BlendMode)
	}
	if l.Position.Width < 0 || l.Position.Height < 0 {
		return apperr.Validation("position width and height must not be negative")
	}
	if len(l.Style) > 0 && !json.Valid(l.Style) {
		return apperr.Validation("style must be valid JSON")
	}
	return nil
}

func applyLayerPatch(l *models.Layer, patch models.LayerPatch) {
	if patch.Name != nil {
		l.Name = *patch.Name
	}
	if patch.ZIndex != nil {
		l.ZIndex = *patch.ZIndex
	}
	if patch.Position != nil {
		l.Position = *patch.Position
	}
	if patch.Visible != nil {
		l.Visible = *patch.Visible
	}
	if patch.Locked != nil {
		l.Locked = *patch.Locked
	}
	if patch.Opacity != nil {
		l.Opacity = *patch.Opacity
	}
	if patch.BlendMode != nil {
		l.BlendMode = *patch.BlendMode
	}
	if patch.TextContent != nil {
		l.TextContent = patch.TextContent
	}
	if patch.ImageURL != nil {
		l.ImageURL = patch.ImageURL
	}
	if patch.Style != nil {
		l.Style = patch.Style
	}
}

func defaultLayerName(l *models.Layer) string {
	if l.Type == models.LayerTypeText && l.TextContent != nil {
		text := truncateRunes(strings.TrimSpace(*l.TextContent), defaultLayerNameRunes)
		if text != "" {
			return text
		}
	}
	if l.Type == models.LayerTypeImage {
		return "Image"
	}
	return "Text"
}

const defaultLayerNameRunes = 32

// truncateRunes cuts s after n runes without splitting a multi-byte character.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
