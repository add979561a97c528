package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/models"

	"github.com/google/uuid"
)

// Memory is a mutex guarded Gateway used when DATABASE_URL is not configured and in tests.
type Memory struct {
	mu sync.RWMutex

	projects map[uuid.UUID]models.Project
	versions map[uuid.UUID]models.Version
	layers   map[uuid.UUID]models.Layer
	requests map[int64]models.GenerationRequest
	codes    map[string]int64
	variants map[uuid.UUID]models.VariantTemplates

	nextRequestID int64
	now           func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		projects: make(map[uuid.UUID]models.Project),
		versions: make(map[uuid.UUID]models.Version),
		layers:   make(map[uuid.UUID]models.Layer),
		requests: make(map[int64]models.GenerationRequest),
		codes:    make(map[string]int64),
		variants: make(map[uuid.UUID]models.VariantTemplates),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PutVariant registers catalog templates for lookups.
func (m *Memory) PutVariant(v models.VariantTemplates) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[v.ID] = v
}

func (m *Memory) GetVariant(_ context.Context, id uuid.UUID) (*models.VariantTemplates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, apperr.NotFound("variant")
	}
	return &v, nil
}

// ---- projects ----

func (m *Memory) CreateProject(_ context.Context, project *models.Project) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := *project
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusDraft
	}
	now := m.now()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Metadata = cloneRaw(p.Metadata)
	m.projects[p.ID] = p
	return &p, nil
}

func (m *Memory) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperr.NotFound("project")
	}
	return &p, nil
}

func (m *Memory) ListProjectsByUser(_ context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Project, 0)
	for _, p := range m.projects {
		if p.UserID != userID {
			continue
		}
		if !includeArchived && p.Status == models.ProjectStatusArchived {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateProject(_ context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperr.NotFound("project")
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.CurrentVersionID != nil {
		versionID := *patch.CurrentVersionID
		p.CurrentVersionID = &versionID
	}
	p.UpdatedAt = m.now()
	m.projects[id] = p
	return &p, nil
}

// ---- versions ----

func (m *Memory) CreateVersion(_ context.Context, version *models.Version) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[version.ProjectID]; !ok {
		return nil, apperr.NotFound("project")
	}
	v := *version
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	maxNumber := 0
	for _, existing := range m.versions {
		if existing.ProjectID == v.ProjectID && existing.VersionNumber > maxNumber {
			maxNumber = existing.VersionNumber
		}
	}
	v.VersionNumber = maxNumber + 1
	if v.Name == "" {
		v.Name = fmt.Sprintf("Version %d", v.VersionNumber)
	}
	v.CreatedAt = m.now()
	if v.Generation != nil {
		g := *v.Generation
		v.Generation = &g
	}
	m.versions[v.ID] = v
	return &v, nil
}

func (m *Memory) GetVersion(_ context.Context, id uuid.UUID) (*models.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, apperr.NotFound("version")
	}
	return &v, nil
}

func (m *Memory) ListVersionsByProject(_ context.Context, projectID uuid.UUID) ([]models.Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Version, 0)
	for _, v := range m.versions {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (m *Memory) UpdateVersion(_ context.Context, id uuid.UUID, patch models.VersionPatch) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, apperr.NotFound("version")
	}
	if patch.FrontImageURL != nil {
		v.FrontImageURL = stringPtr(*patch.FrontImageURL)
	}
	if patch.BackImageURL != nil {
		v.BackImageURL = stringPtr(*patch.BackImageURL)
	}
	if patch.FrontCompositeURL != nil {
		v.FrontCompositeURL = stringPtr(*patch.FrontCompositeURL)
	}
	if patch.BackCompositeURL != nil {
		v.BackCompositeURL = stringPtr(*patch.BackCompositeURL)
	}
	m.versions[id] = v
	return &v, nil
}

// ---- layers ----

func (m *Memory) CreateLayer(_ context.Context, layer *models.Layer) (*models.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.versions[layer.VersionID]; !ok {
		return nil, apperr.NotFound("version")
	}
	l := *layer
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := m.now()
	l.CreatedAt, l.UpdatedAt = now, now
	l.Style = cloneRaw(l.Style)
	if l.TextContent != nil {
		l.TextContent = stringPtr(*l.TextContent)
	}
	if l.ImageURL != nil {
		l.ImageURL = stringPtr(*l.ImageURL)
	}
	m.layers[l.ID] = l
	return &l, nil
}

func (m *Memory) GetLayer(_ context.Context, id uuid.UUID) (*models.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layers[id]
	if !ok {
		return nil, apperr.NotFound("layer")
	}
	return &l, nil
}

func (m *Memory) ListLayersByVersion(_ context.Context, versionID uuid.UUID) ([]models.Layer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Layer, 0)
	for _, l := range m.layers {
		if l.VersionID == versionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ZIndex != out[j].ZIndex {
			return out[i].ZIndex < out[j].ZIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateLayer(_ context.Context, id uuid.UUID, patch models.LayerPatch) (*models.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.layers[id]
	if !ok {
		return nil, apperr.NotFound("layer")
	}
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
		l.TextContent = stringPtr(*patch.TextContent)
	}
	if patch.ImageURL != nil {
		l.ImageURL = stringPtr(*patch.ImageURL)
	}
	if patch.Style != nil {
		l.Style = cloneRaw(patch.Style)
	}
	l.UpdatedAt = m.now()
	m.layers[id] = l
	return &l, nil
}

func (m *Memory) DeleteLayer(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[id]; !ok {
		return apperr.NotFound("layer")
	}
	delete(m.layers, id)
	return nil
}

// ---- generation requests ----

func (m *Memory) CreateGenerationRequest(_ context.Context, req *models.GenerationRequest) (*models.GenerationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.codes[req.Code]; taken {
		return nil, apperr.Conflict("generation request code %q already exists", req.Code)
	}
	m.nextRequestID++
	r := *req
	r.ID = m.nextRequestID
	now := m.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Config = cloneRaw(r.Config)
	m.requests[r.ID] = r
	m.codes[r.Code] = r.ID
	return &r, nil
}

func (m *Memory) GetGenerationRequest(_ context.Context, id int64) (*models.GenerationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperr.NotFound("generation request")
	}
	return &r, nil
}

func (m *Memory) GetGenerationRequestByCode(_ context.Context, code string) (*models.GenerationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codes[code]
	if !ok {
		return nil, apperr.NotFound("generation request")
	}
	r := m.requests[id]
	return &r, nil
}

func (m *Memory) ListGenerationRequestsByProject(_ context.Context, projectID uuid.UUID) ([]models.GenerationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.GenerationRequest, 0)
	for _, r := range m.requests {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) ListUnfinishedGenerationRequests(_ context.Context, updatedBefore time.Time) ([]models.GenerationRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.GenerationRequest, 0)
	for _, r := range m.requests {
		if !r.Status.IsTerminal() && r.UpdatedAt.Before(updatedBefore) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateGenerationRequest(_ context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, apperr.NotFound("generation request")
	}
	m.applyRequestPatch(&r, patch)
	return &r, nil
}

func (m *Memory) UpdateGenerationRequestUnlessTerminal(_ context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, false, apperr.NotFound("generation request")
	}
	if r.Status.IsTerminal() {
		return &r, false, nil
	}
	m.applyRequestPatch(&r, patch)
	return &r, true, nil
}

// applyRequestPatch must be called with mu held.
func (m *Memory) applyRequestPatch(r *models.GenerationRequest, patch models.GenerationRequestPatch) {
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.Progress != nil {
		r.Progress = *patch.Progress
	}
	if patch.VersionID != nil {
		versionID := *patch.VersionID
		r.VersionID = &versionID
	}
	if patch.ErrorMessage != nil {
		r.ErrorMessage = stringPtr(*patch.ErrorMessage)
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		r.StartedAt = &t
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		r.CompletedAt = &t
	}
	r.UpdatedAt = m.now()
	m.requests[r.ID] = *r
}

func stringPtr(s string) *string { return &s }

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
