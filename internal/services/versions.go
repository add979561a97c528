package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/logger"
	"design-lab-backend/internal/models"
	"design-lab-backend/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const InitialVersionName = "Initial Version"

// VersionManager owns the project -> version -> layer tree: the append-only
// version history, the current-version pointer and the layers of each version.
type VersionManager struct {
	store store.Gateway
	log   *logger.Logger
	heal  singleflight.Group
}

func NewVersionManager(gw store.Gateway, log *logger.Logger) *VersionManager {
	return &VersionManager{
		store: gw,
		log:   log.With("service", "VersionManager"),
	}
}

type healResult struct {
	project *models.Project
	version *models.Version
}

// ensureCurrentVersion returns the project with a valid current version,
// repairing the pointer when it is missing or dangling. The latest existing
// version is adopted; with no versions at all a v1 is created. Concurrent
// callers for the same project share one repair.
func (m *VersionManager) ensureCurrentVersion(ctx context.Context, projectID uuid.UUID) (*models.Project, *models.Version, error) {
	res, err, _ := m.heal.Do(projectID.String(), func() (interface{}, error) {
		project, err := m.store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}

		if project.CurrentVersionID != nil {
			current, err := m.store.GetVersion(ctx, *project.CurrentVersionID)
			switch {
			case err == nil && current.ProjectID == project.ID:
				return healResult{project: project, version: current}, nil
			case err != nil && !errors.Is(err, apperr.ErrNotFound):
				return nil, err
			}
			m.log.Warn("current version pointer is broken, repairing",
				"project_id", project.ID, "version_id", *project.CurrentVersionID)
		}

		versions, err := m.store.ListVersionsByProject(ctx, project.ID)
		if err != nil {
			return nil, err
		}

		var adopt *models.Version
		if len(versions) > 0 {
			latest := versions[len(versions)-1]
			adopt = &latest
			m.log.Info("adopting latest version as current", "project_id", project.ID, "version_number", latest.VersionNumber)
		} else {
			adopt, err = m.store.CreateVersion(ctx, &models.Version{
				ProjectID: project.ID,
				Name:      InitialVersionName,
				CreatedBy: project.UserID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create initial version: %w", err)
			}
			m.log.Info("created initial version", "project_id", project.ID, "version_id", adopt.ID)
		}

		updated, err := m.store.UpdateProject(ctx, project.ID, models.ProjectPatch{CurrentVersionID: &adopt.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to repoint current version: %w", err)
		}
		return healResult{project: updated, version: adopt}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	r := res.(healResult)
	return r.project, r.version, nil
}

// ownedProject loads a project and hides projects of other users behind a not found.
func (m *VersionManager) ownedProject(ctx context.Context, userID, projectID uuid.UUID) (*models.Project, error) {
	project, err := m.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, apperr.NotFound("project")
	}
	return project, nil
}

func (m *VersionManager) versionInProject(ctx context.Context, projectID, versionID uuid.UUID) (*models.Version, error) {
	version, err := m.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.ProjectID != projectID {
		return nil, apperr.NotFound("version")
	}
	return version, nil
}

// CreateVersion appends a version to the project and makes it current. With
// CopyFromVersionID set, every layer of the source is duplicated into the new
// version under fresh ids, and the source images carry over unless the request
// provides its own.
func (m *VersionManager) CreateVersion(ctx context.Context, userID, projectID uuid.UUID, req models.CreateVersionRequest) (*models.Version, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectStatusArchived {
		return nil, apperr.Conflict("project is archived")
	}

	var source *models.Version
	if req.CopyFromVersionID != nil {
		source, err = m.versionInProject(ctx, project.ID, *req.CopyFromVersionID)
		if err != nil {
			return nil, err
		}
	}

	draft := &models.Version{
		ProjectID:     project.ID,
		Name:          strings.TrimSpace(req.Name),
		FrontImageURL: trimmedOrNil(req.FrontImageURL),
		BackImageURL:  trimmedOrNil(req.BackImageURL),
		CreatedBy:     userID,
	}
	if source != nil && draft.FrontImageURL == nil && draft.BackImageURL == nil {
		draft.FrontImageURL = source.FrontImageURL
		draft.BackImageURL = source.BackImageURL
		draft.FrontCompositeURL = source.FrontCompositeURL
		draft.BackCompositeURL = source.BackCompositeURL
	}

	version, err := m.appendVersion(ctx, draft)
	if err != nil {
		return nil, err
	}

	if source != nil {
		copied, err := m.copyLayers(ctx, source.ID, version.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to copy layers from version %d: %w", source.VersionNumber, err)
		}
		m.log.Debug("copied layers into new version", "source_version_id", source.ID, "version_id", version.ID, "count", copied)
	}

	if _, err := m.store.UpdateProject(ctx, project.ID, models.ProjectPatch{CurrentVersionID: &version.ID}); err != nil {
		return nil, fmt.Errorf("failed to repoint current version: %w", err)
	}
	return version, nil
}

// appendVersion persists a version without touching the project pointer.
func (m *VersionManager) appendVersion(ctx context.Context, v *models.Version) (*models.Version, error) {
	version, err := m.store.CreateVersion(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}
	m.log.Info("version created", "project_id", version.ProjectID, "version_id", version.ID, "version_number", version.VersionNumber)
	return version, nil
}

func (m *VersionManager) copyLayers(ctx context.Context, fromVersionID, toVersionID uuid.UUID) (int, error) {
	layers, err := m.store.ListLayersByVersion(ctx, fromVersionID)
	if err != nil {
		return 0, err
	}
	for _, l := range layers {
		dup := l
		dup.ID = uuid.Nil
		dup.VersionID = toVersionID
		if l.TextContent != nil {
			dup.TextContent = stringPtr(*l.TextContent)
		}
		if l.ImageURL != nil {
			dup.ImageURL = stringPtr(*l.ImageURL)
		}
		if l.Style != nil {
			dup.Style = append([]byte(nil), l.Style...)
		}
		if _, err := m.store.CreateLayer(ctx, &dup); err != nil {
			return 0, err
		}
	}
	return len(layers), nil
}

func (m *VersionManager) ListVersions(ctx context.Context, userID, projectID uuid.UUID) ([]models.Version, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return m.store.ListVersionsByProject(ctx, project.ID)
}

func (m *VersionManager) GetVersion(ctx context.Context, userID, projectID, versionID uuid.UUID) (*models.Version, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return m.versionInProject(ctx, project.ID, versionID)
}

// RestoreVersion makes an earlier version current again. Nothing is copied or
// deleted; later edits change the restored version in place.
func (m *VersionManager) RestoreVersion(ctx context.Context, userID, projectID, versionID uuid.UUID) (*models.Project, error) {
	project, err := m.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	version, err := m.versionInProject(ctx, project.ID, versionID)
	if err != nil {
		return nil, err
	}
	updated, err := m.store.UpdateProject(ctx, project.ID, models.ProjectPatch{CurrentVersionID: &version.ID})
	if err != nil {
		return nil, err
	}
	m.log.Info("version restored", "project_id", project.ID, "version_number", version.VersionNumber)
	return updated, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func stringPtr(s string) *string { return &s }
