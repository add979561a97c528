package services

import (
	"context"
	"encoding/json"
	"strings"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/models"

	"github.com/google/uuid"
)

const maxProjectNameLength = 200

// CreateProject stores a new draft project and bootstraps its first version.
// A failed bootstrap is logged only; the next read of the project repairs it.
func (m *VersionManager) CreateProject(ctx context.Context, userID uuid.UUID, req models.CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if len(name) > maxProjectNameLength {
		return nil, apperr.Validation("name must be at most %d characters", maxProjectNameLength)
	}

	var metadata json.RawMessage
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, apperr.Validation("metadata must be a JSON object")
		}
		metadata = raw
	}

	project, err := m.store.CreateProject(ctx, &models.Project{
		UserID:        userID,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		VariantID:     req.VariantID,
		ExternalJobID: trimmedOrNil(req.ExternalJobID),
		Status:        models.ProjectStatusDraft,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	m.log.Info("project created", "project_id", project.ID, "user_id", userID)

	healed, _, err := m.ensureCurrentVersion(ctx, project.ID)
	if err != nil {
		m.log.Error("failed to bootstrap initial version", "project_id", project.ID, "error", err)
		return project, nil
	}
	return healed, nil
}

// GetProjectView returns the project, its current version and that version's
// layers, repairing the current-version pointer first when needed.
func (m *VersionManager) GetProjectView(ctx context.Context, userID, projectID uuid.UUID) (*models.ProjectView, error) {
	if _, err := m.ownedProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	project, version, err := m.ensureCurrentVersion(ctx, projectID)
	if err != nil {
		return nil, err
	}

	layers, err := m.store.ListLayersByVersion(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	return &models.ProjectView{
		Project:        project,
		CurrentVersion: version,
		Layers:         layers,
	}, nil
}

func (m *VersionManager) ListProjects(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error) {
	return m.store.ListProjectsByUser(ctx, userID, includeArchived)
}

// UpdateProject changes name, description and user-controlled status. The
// generating status is reserved for generation requests and archived for ArchiveProject.
func (m *VersionManager) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req models.UpdateProjectRequest) (*models.Project, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	patch := models.ProjectPatch{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		if len(name) > maxProjectNameLength {
			return nil, apperr.Validation("name must be at most %d characters", maxProjectNameLength)
		}
		patch.Name = &name
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		patch.Description = &description
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ProjectStatusDraft, models.ProjectStatusInProgress, models.ProjectStatusFinalized:
		default:
			return nil, apperr.Validation("status must be draft, in_progress or finalized")
		}
		if project.Status == models.ProjectStatusArchived {
			return nil, apperr.Conflict("project is archived")
		}
		patch.Status = req.Status
	}

	return m.store.UpdateProject(ctx, project.ID, patch)
}

// ArchiveProject hides the project from default listings. Projects are never deleted.
func (m *VersionManager) ArchiveProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return project, nil
	}
	status := models.ProjectStatusArchived
	archived, err := m.store.UpdateProject(ctx, project.ID, models.ProjectPatch{Status: &status})
	if err != nil {
		return nil, err
	}
	m.log.Info("project archived", "project_id", project.ID)
	return archived, nil
}
