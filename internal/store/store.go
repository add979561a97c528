// Package store defines the persistence gateway consumed by the design lab services.
//
// Getters return apperr.ErrNotFound (wrapped) when the row does not exist.
package store

import (
	"context"
	"time"

	"design-lab-backend/internal/models"

	"github.com/google/uuid"
)

type ProjectStore interface {
	CreateProject(ctx context.Context, project *models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListProjectsByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error)
}

type VersionStore interface {
	// CreateVersion assigns VersionNumber as max(existing)+1 for the project atomically.
	CreateVersion(ctx context.Context, version *models.Version) (*models.Version, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*models.Version, error)
	ListVersionsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Version, error)
	UpdateVersion(ctx context.Context, id uuid.UUID, patch models.VersionPatch) (*models.Version, error)
}

type LayerStore interface {
	CreateLayer(ctx context.Context, layer *models.Layer) (*models.Layer, error)
	GetLayer(ctx context.Context, id uuid.UUID) (*models.Layer, error)
	ListLayersByVersion(ctx context.Context, versionID uuid.UUID) ([]models.Layer, error)
	UpdateLayer(ctx context.Context, id uuid.UUID, patch models.LayerPatch) (*models.Layer, error)
	DeleteLayer(ctx context.Context, id uuid.UUID) error
}

type GenerationRequestStore interface {
	CreateGenerationRequest(ctx context.Context, req *models.GenerationRequest) (*models.GenerationRequest, error)
	GetGenerationRequest(ctx context.Context, id int64) (*models.GenerationRequest, error)
	GetGenerationRequestByCode(ctx context.Context, code string) (*models.GenerationRequest, error)
	ListGenerationRequestsByProject(ctx context.Context, projectID uuid.UUID) ([]models.GenerationRequest, error)
	// ListUnfinishedGenerationRequests returns pending or processing requests last
	// written before updatedBefore, oldest first.
	ListUnfinishedGenerationRequests(ctx context.Context, updatedBefore time.Time) ([]models.GenerationRequest, error)
	UpdateGenerationRequest(ctx context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, error)
	// UpdateGenerationRequestUnlessTerminal applies patch only while the request is
	// pending or processing. It reports false, without error, when the request was
	// already completed, failed or cancelled.
	UpdateGenerationRequestUnlessTerminal(ctx context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, bool, error)
}

type VariantLookup interface {
	GetVariant(ctx context.Context, id uuid.UUID) (*models.VariantTemplates, error)
}

// Gateway is everything the design lab persists.
type Gateway interface {
	ProjectStore
	VersionStore
	LayerStore
	GenerationRequestStore
}
