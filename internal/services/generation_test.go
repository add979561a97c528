package services_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/imagen"
	"design-lab-backend/internal/logger"
	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"
	"design-lab-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	frontBytes = []byte("front-png")
	backBytes  = []byte("back-png")
	typoBytes  = []byte("typo-png")
)

type fakeProvider struct {
	mu        sync.Mutex
	baseErr   error
	typoErr   error
	panicMsg  string
	baseCalls int
	typoCalls int
	lastBase  imagen.BaseDesignInput
	lastTypo  imagen.TypographyInput
}

func (p *fakeProvider) GenerateBaseDesign(ctx context.Context, in imagen.BaseDesignInput) (*imagen.BaseDesignResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseCalls++
	p.lastBase = in
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.baseErr != nil {
		return nil, p.baseErr
	}
	return &imagen.BaseDesignResult{
		FrontImageBase64: base64.StdEncoding.EncodeToString(frontBytes),
		BackImageBase64:  base64.StdEncoding.EncodeToString(backBytes),
		Provider:         "fake",
		ModelVersion:     "fake-1",
		DurationMs:       12,
	}, nil
}

func (p *fakeProvider) GenerateTypographyIteration(ctx context.Context, in imagen.TypographyInput) (*imagen.TypographyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typoCalls++
	p.lastTypo = in
	if p.typoErr != nil {
		return nil, p.typoErr
	}
	return &imagen.TypographyResult{
		ModifiedImageBase64: base64.StdEncoding.EncodeToString(typoBytes),
		Provider:            "fake",
		DurationMs:          7,
	}, nil
}

// inlineScheduler runs the task before Go returns.
type inlineScheduler struct{}

func (inlineScheduler) Go(task func(ctx context.Context)) { task(context.Background()) }

// manualScheduler holds tasks until RunAll.
type manualScheduler struct {
	tasks []func(ctx context.Context)
}

func (s *manualScheduler) Go(task func(ctx context.Context)) { s.tasks = append(s.tasks, task) }

func (s *manualScheduler) RunAll() {
	tasks := s.tasks
	s.tasks = nil
	for _, task := range tasks {
		task(context.Background())
	}
}

// progressRecorder records every accepted request write.
type progressRecorder struct {
	*store.Memory
	mu       sync.Mutex
	progress []int
	statuses []models.GenerationStatus
}

func (r *progressRecorder) UpdateGenerationRequestUnlessTerminal(ctx context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, bool, error) {
	req, ok, err := r.Memory.UpdateGenerationRequestUnlessTerminal(ctx, id, patch)
	if ok && err == nil {
		r.mu.Lock()
		r.progress = append(r.progress, req.Progress)
		r.statuses = append(r.statuses, req.Status)
		r.mu.Unlock()
	}
	return req, ok, err
}

// repointHooks fires once around the first write that points the project at a
// generated version.
type repointHooks struct {
	*store.Memory
	mu     sync.Mutex
	before func()
	after  func()
}

func (h *repointHooks) UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	repoint := patch.CurrentVersionID != nil && patch.Status != nil && *patch.Status == models.ProjectStatusInProgress
	var before, after func()
	if repoint {
		h.mu.Lock()
		before, after = h.before, h.after
		h.before, h.after = nil, nil
		h.mu.Unlock()
	}
	if before != nil {
		before()
	}
	project, err := h.Memory.UpdateProject(ctx, id, patch)
	if after != nil {
		after()
	}
	return project, err
}

type panickingVariants struct{}

func (panickingVariants) GetVariant(ctx context.Context, id uuid.UUID) (*models.VariantTemplates, error) {
	panic("catalog row without templates")
}

type fakeHost struct {
	mu      sync.Mutex
	baseURL string
	err     error
	uploads map[string][]byte
}

func (h *fakeHost) UploadImage(ctx context.Context, path string, data []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	if h.uploads == nil {
		h.uploads = make(map[string][]byte)
	}
	h.uploads[path] = data
	return h.baseURL + "/" + path, nil
}

type orchestratorFixture struct {
	gw       store.Gateway
	mem      *store.Memory
	versions *services.VersionManager
	orch     *services.Orchestrator
	provider *fakeProvider
	userID   uuid.UUID
}

type fixtureOption func(*services.OrchestratorDeps)

func newOrchestratorFixture(t *testing.T, gw store.Gateway, mem *store.Memory, sched services.Scheduler, opts ...fixtureOption) *orchestratorFixture {
	t.Helper()
	log := logger.NewNop()
	versions := services.NewVersionManager(gw, log)
	provider := &fakeProvider{}
	deps := services.OrchestratorDeps{
		Store:     gw,
		Versions:  versions,
		Provider:  provider,
		Scheduler: sched,
		Log:       log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &orchestratorFixture{
		gw:       gw,
		mem:      mem,
		versions: versions,
		orch:     services.NewOrchestrator(deps),
		provider: provider,
		userID:   uuid.New(),
	}
}

func newInlineFixture(t *testing.T, opts ...fixtureOption) *orchestratorFixture {
	mem := store.NewMemory()
	return newOrchestratorFixture(t, mem, mem, inlineScheduler{}, opts...)
}

func (f *orchestratorFixture) project(t *testing.T) *models.Project {
	t.Helper()
	p, err := f.versions.CreateProject(context.Background(), f.userID, models.CreateProjectRequest{Name: "Tee"})
	require.NoError(t, err)
	return p
}

func baseConfig(prompt string) json.RawMessage {
	raw, _ := json.Marshal(models.BaseGenerationConfig{Prompt: prompt, Style: "retro"})
	return raw
}

func typographyConfig(text string) json.RawMessage {
	raw, _ := json.Marshal(models.TypographyConfig{TextContent: text, FontFamily: "Inter"})
	return raw
}

func TestStartGeneration_BaseGenerationCompletes(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig(" logo "))
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusProcessing, accepted.Status)
	assert.Equal(t, 0, accepted.Progress)
	assert.NotEmpty(t, accepted.Code)
	assert.NotNil(t, accepted.StartedAt)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, req.Status)
	assert.Equal(t, 100, req.Progress)
	require.NotNil(t, req.VersionID)
	assert.Nil(t, req.ErrorMessage)
	assert.NotNil(t, req.CompletedAt)
	assert.Equal(t, "logo", f.provider.lastBase.Prompt)

	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)
	assert.Equal(t, 2, version.VersionNumber)
	require.NotNil(t, version.FrontImageURL)
	require.NotNil(t, version.BackImageURL)
	assert.Equal(t, services.EmbedPNG(frontBytes), *version.FrontImageURL)
	assert.Equal(t, services.EmbedPNG(backBytes), *version.BackImageURL)
	require.NotNil(t, version.Generation)
	assert.Equal(t, "logo", version.Generation.Prompt)
	assert.Equal(t, "fake", version.Generation.Provider)
	assert.Equal(t, req.ID, version.Generation.RequestID)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, version.ID, *project.CurrentVersionID)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)
}

func TestStartGeneration_ValidationFailsWithoutSideEffects(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)

	cases := []struct {
		name    string
		kind    models.GenerationKind
		config  json.RawMessage
		message string
	}{
		{"blank prompt", models.GenerationKindBase, baseConfig("   "), "config.prompt is required"},
		{"missing text", models.GenerationKindTypography, json.RawMessage(`{"font_family":"Inter"}`), "config.text_content is required"},
		{"bad color", models.GenerationKindTypography, json.RawMessage(`{"text_content":"hi","text_color":"red"}`), "config.text_color must be a hex color"},
		{"no config", models.GenerationKindBase, nil, "config is required"},
		{"unknown kind", "upscale", baseConfig("logo"), "kind must be base_generation or typography_iteration"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.orch.StartGeneration(ctx, f.userID, p.ID, tc.kind, tc.config)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tc.message, err.Error())
		})
	}

	requests, err := f.orch.ListRequests(ctx, f.userID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
	assert.Zero(t, f.provider.baseCalls+f.provider.typoCalls)
}

func TestStartGeneration_UnknownProject(t *testing.T) {
	f := newInlineFixture(t)
	p := f.project(t)

	_, err := f.orch.StartGeneration(context.Background(), uuid.New(), p.ID, models.GenerationKindBase, baseConfig("logo"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orch.StartGeneration(context.Background(), f.userID, uuid.New(), models.GenerationKindBase, baseConfig("logo"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStartGeneration_ArchivedProjectIsConflict(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	_, err := f.versions.ArchiveProject(ctx, f.userID, p.ID)
	require.NoError(t, err)

	_, err = f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestStartGeneration_DoesNotWaitForProvider(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, mem, mem, sched)
	ctx := context.Background()
	p := f.project(t)

	req, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)
	assert.Zero(t, f.provider.baseCalls)
	require.Len(t, sched.tasks, 1)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusGenerating, project.Status)

	sched.RunAll()
	done, err := f.orch.GetRequest(ctx, f.userID, strconv.FormatInt(req.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, done.Status)
}

func TestStartGeneration_ProgressIsMonotonic(t *testing.T) {
	mem := store.NewMemory()
	rec := &progressRecorder{Memory: mem}
	f := newOrchestratorFixture(t, rec, mem, inlineScheduler{})
	ctx := context.Background()
	p := f.project(t)

	req, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	assert.Equal(t, []int{10, 80, 100}, rec.progress)
	assert.Equal(t, models.GenerationStatusCompleted, rec.statuses[len(rec.statuses)-1])
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i], rec.progress[i-1])
	}

	before, err := mem.GetGenerationRequest(ctx, req.ID)
	require.NoError(t, err)
	_, err = f.orch.Cancel(ctx, f.userID, req.Code)
	require.ErrorIs(t, err, apperr.ErrConflict)
	after, err := mem.GetGenerationRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after, "terminal requests never change")
}

func TestStartGeneration_TypographyProviderFailure(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)

	front := "https://cdn.test/front.png"
	_, err := f.versions.CreateVersion(ctx, f.userID, p.ID, models.CreateVersionRequest{FrontImageURL: &front})
	require.NoError(t, err)
	f.provider.typoErr = &imagen.ProviderError{StatusCode: 400, Message: "text too long", Body: "internal details"}

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindTypography, typographyConfig("HELLO"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)
	require.NotNil(t, req.ErrorMessage)
	assert.Equal(t, "image provider rejected the request: text too long", *req.ErrorMessage)
	assert.NotContains(t, *req.ErrorMessage, "internal details")
	assert.Nil(t, req.VersionID)
	assert.Less(t, req.Progress, 100)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	versions, err := f.gw.ListVersionsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2, "no version is created for a failed request")
	assert.Equal(t, front, f.provider.lastTypo.BaseImageURL)
}

func TestStartGeneration_GenericFailureMessage(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	f.provider.baseErr = errors.New("dial tcp 10.0.0.3:443: connection refused")

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)
	assert.Equal(t, "image generation failed, please try again", *req.ErrorMessage)
}

func TestStartGeneration_ProviderPanicFailsRequest(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	f.provider.panicMsg = "nil map"

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)
}

func TestStartGeneration_VariantLookupPanicStillCompletes(t *testing.T) {
	log := logger.NewNop()
	f := newInlineFixture(t, func(d *services.OrchestratorDeps) {
		d.Variants = panickingVariants{}
		d.Compositor = services.NewCompositor(nil, 0.45, log)
	})
	ctx := context.Background()
	variantID := uuid.New()
	p, err := f.versions.CreateProject(ctx, f.userID, models.CreateProjectRequest{Name: "Tee", VariantID: &variantID})
	require.NoError(t, err)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, req.Status)
	assert.Equal(t, 100, req.Progress)
	require.NotNil(t, req.VersionID)

	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)
	assert.Nil(t, version.FrontCompositeURL)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)
	assert.Equal(t, *req.VersionID, *project.CurrentVersionID)
}

func TestStartGeneration_PanicAfterVersionSavedCompletes(t *testing.T) {
	mem := store.NewMemory()
	hooks := &repointHooks{Memory: mem, before: func() { panic("connection reset") }}
	f := newOrchestratorFixture(t, hooks, mem, inlineScheduler{})
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, req.Status)
	require.NotNil(t, req.VersionID)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *req.VersionID, *project.CurrentVersionID)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)

	versions, err := mem.ListVersionsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestStartGeneration_TypographyUsesEmbeddedBaseImage(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)

	_, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindTypography, typographyConfig("HELLO"))
	require.NoError(t, err)

	assert.Equal(t, base64.StdEncoding.EncodeToString(frontBytes), f.provider.lastTypo.BaseImageBase64)
	assert.Empty(t, f.provider.lastTypo.BaseImageURL)
	assert.Equal(t, "HELLO", f.provider.lastTypo.TextContent)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	require.Equal(t, models.GenerationStatusCompleted, req.Status)

	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)
	assert.Equal(t, 3, version.VersionNumber)
	assert.Equal(t, services.EmbedPNG(typoBytes), *version.FrontImageURL)
	assert.Nil(t, version.BackImageURL, "typography iterations only produce a front image")
}

func TestStartGeneration_TypographyWithoutBaseImageFails(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindTypography, typographyConfig("HELLO"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)
	assert.Equal(t, "current version has no front image to iterate on", *req.ErrorMessage)
	assert.Zero(t, f.provider.typoCalls)
}

func TestStartGeneration_HostsImages(t *testing.T) {
	host := &fakeHost{baseURL: "https://cdn.test"}
	f := newInlineFixture(t, func(d *services.OrchestratorDeps) { d.Host = host })
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)

	frontPath := "design-lab/" + p.ID.String() + "/" + strconv.FormatInt(req.ID, 10) + "/front.png"
	assert.Equal(t, "https://cdn.test/"+frontPath, *version.FrontImageURL)
	assert.Equal(t, frontBytes, host.uploads[frontPath])
}

func TestStartGeneration_UploadFailureKeepsImageEmbedded(t *testing.T) {
	host := &fakeHost{err: errors.New("bucket missing")}
	f := newInlineFixture(t, func(d *services.OrchestratorDeps) { d.Host = host })
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	require.Equal(t, models.GenerationStatusCompleted, req.Status)
	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)
	assert.Equal(t, services.EmbedPNG(frontBytes), *version.FrontImageURL)
}

func TestStartGeneration_CompositeUsesPlaceholderForEmbeddedDesign(t *testing.T) {
	mem := store.NewMemory()
	variantID := uuid.New()
	frontTemplate := "https://cdn.test/templates/front.png"
	mem.PutVariant(models.VariantTemplates{ID: variantID, FrontTemplateURL: &frontTemplate})

	log := logger.NewNop()
	f := newOrchestratorFixture(t, mem, mem, inlineScheduler{}, func(d *services.OrchestratorDeps) {
		d.Variants = mem
		d.Compositor = services.NewCompositor(nil, 0.45, log)
	})
	ctx := context.Background()
	p, err := f.versions.CreateProject(ctx, f.userID, models.CreateProjectRequest{Name: "Tee", VariantID: &variantID})
	require.NoError(t, err)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)

	// The design was never hosted, so the composite is the design itself.
	require.NotNil(t, version.FrontCompositeURL)
	assert.Equal(t, *version.FrontImageURL, *version.FrontCompositeURL)
	assert.Nil(t, version.BackCompositeURL, "variant has no back template")
}

func TestStartGeneration_CompositingFailureIsSwallowed(t *testing.T) {
	mem := store.NewMemory()
	variantID := uuid.New()
	frontTemplate := "http://127.0.0.1:1/templates/front.png"
	mem.PutVariant(models.VariantTemplates{ID: variantID, FrontTemplateURL: &frontTemplate})

	log := logger.NewNop()
	host := &fakeHost{baseURL: "http://127.0.0.1:1"}
	f := newOrchestratorFixture(t, mem, mem, inlineScheduler{}, func(d *services.OrchestratorDeps) {
		d.Variants = mem
		d.Host = host
		d.Compositor = services.NewCompositor(host, 0.45, log)
	})
	ctx := context.Background()
	p, err := f.versions.CreateProject(ctx, f.userID, models.CreateProjectRequest{Name: "Tee", VariantID: &variantID})
	require.NoError(t, err)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	req, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, req.Status)

	version, err := f.gw.GetVersion(ctx, *req.VersionID)
	require.NoError(t, err)
	assert.Nil(t, version.FrontCompositeURL)

	project, err := f.gw.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusInProgress, project.Status)
}

func TestCancel_BeforeTaskRuns(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, mem, mem, sched)
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	cancelled, err := f.orch.Cancel(ctx, f.userID, strconv.FormatInt(accepted.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, cancelled.Status)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	sched.RunAll()

	req, err := mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, req.Status)
	assert.Equal(t, 0, req.Progress)
	assert.Zero(t, f.provider.baseCalls)

	versions, err := mem.ListVersionsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = f.orch.Cancel(ctx, f.userID, accepted.Code)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

// cancellingProvider cancels the request while the provider call is in flight.
type cancellingProvider struct {
	fakeProvider
	cancel func()
}

func (p *cancellingProvider) GenerateBaseDesign(ctx context.Context, in imagen.BaseDesignInput) (*imagen.BaseDesignResult, error) {
	p.cancel()
	return p.fakeProvider.GenerateBaseDesign(ctx, in)
}

func TestCancel_DuringProviderCallDiscardsResult(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	provider := &cancellingProvider{}
	f := newOrchestratorFixture(t, mem, mem, sched, func(d *services.OrchestratorDeps) { d.Provider = provider })
	ctx := context.Background()
	p := f.project(t)

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)
	provider.cancel = func() {
		_, err := f.orch.Cancel(ctx, f.userID, accepted.Code)
		require.NoError(t, err)
	}

	sched.RunAll()

	req, err := mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, req.Status)
	assert.Equal(t, 10, req.Progress)
	assert.Nil(t, req.VersionID)
	assert.Equal(t, 1, provider.baseCalls)

	versions, err := mem.ListVersionsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestCancel_RacingCompletionRestoresPointer(t *testing.T) {
	mem := store.NewMemory()
	hooks := &repointHooks{Memory: mem}
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, hooks, mem, sched)
	ctx := context.Background()
	p := f.project(t)
	initial := *p.CurrentVersionID

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)
	hooks.after = func() {
		_, err := f.orch.Cancel(ctx, f.userID, accepted.Code)
		require.NoError(t, err)
	}

	sched.RunAll()

	req, err := mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, req.Status)
	assert.Nil(t, req.VersionID)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, initial, *project.CurrentVersionID)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	// The generated version stays in history.
	versions, err := mem.ListVersionsByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestCancel_FailedRequestIsConflict(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	f.provider.baseErr = errors.New("upstream 500")

	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	before, err := f.mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	require.Equal(t, models.GenerationStatusFailed, before.Status)

	_, err = f.orch.Cancel(ctx, f.userID, accepted.Code)
	require.ErrorIs(t, err, apperr.ErrConflict)

	after, err := f.mem.GetGenerationRequest(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFailInterrupted_FailsAbandonedRequests(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, mem, mem, sched)
	ctx := context.Background()
	p := f.project(t)
	done := f.project(t)

	// Leave one request processing with no task behind it, and complete another.
	abandoned, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)
	abandonedTask := sched.tasks
	sched.tasks = nil
	finished, err := f.orch.StartGeneration(ctx, f.userID, done.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)
	sched.RunAll()

	n, err := f.orch.FailInterrupted(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "recent requests are left alone")

	// A negative window treats every unfinished request as stale.
	n, err = f.orch.FailInterrupted(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	req, err := mem.GetGenerationRequest(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)
	require.NotNil(t, req.ErrorMessage)
	assert.Contains(t, *req.ErrorMessage, "interrupted")
	assert.NotNil(t, req.CompletedAt)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusDraft, project.Status)

	other, err := mem.GetGenerationRequest(ctx, finished.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, other.Status)

	// A task that shows up late finds the request terminal and writes nothing.
	for _, task := range abandonedTask {
		task(ctx)
	}
	req, err = mem.GetGenerationRequest(ctx, abandoned.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, req.Status)
	assert.Equal(t, 1, f.provider.baseCalls, "only the finished request reached the provider")
}

func TestCancel_UnknownOrForeignRequest(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	_, err = f.orch.Cancel(ctx, uuid.New(), accepted.Code)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orch.Cancel(ctx, f.userID, "gen_missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetRequest_ByIDOrCode(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	accepted, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("logo"))
	require.NoError(t, err)

	byID, err := f.orch.GetRequest(ctx, f.userID, strconv.FormatInt(accepted.ID, 10))
	require.NoError(t, err)
	byCode, err := f.orch.GetRequest(ctx, f.userID, accepted.Code)
	require.NoError(t, err)
	assert.Equal(t, byID, byCode)

	_, err = f.orch.GetRequest(ctx, uuid.New(), accepted.Code)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStartGeneration_ConcurrentRequestsLastWriterWins(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, mem, mem, sched)
	ctx := context.Background()
	p := f.project(t)

	first, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("one"))
	require.NoError(t, err)
	second, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("two"))
	require.NoError(t, err)

	sched.RunAll()

	r1, err := mem.GetGenerationRequest(ctx, first.ID)
	require.NoError(t, err)
	r2, err := mem.GetGenerationRequest(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, r1.Status)
	assert.Equal(t, models.GenerationStatusCompleted, r2.Status)

	project, err := mem.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *r2.VersionID, *project.CurrentVersionID)
}

func TestStartGeneration_ExclusiveRejectsSecondRequest(t *testing.T) {
	mem := store.NewMemory()
	sched := &manualScheduler{}
	f := newOrchestratorFixture(t, mem, mem, sched, func(d *services.OrchestratorDeps) { d.Exclusive = true })
	ctx := context.Background()
	p := f.project(t)

	_, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("one"))
	require.NoError(t, err)
	_, err = f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("two"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	sched.RunAll()
	_, err = f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig("three"))
	assert.NoError(t, err)
}

func TestListRequests_NewestFirst(t *testing.T) {
	f := newInlineFixture(t)
	ctx := context.Background()
	p := f.project(t)
	for _, prompt := range []string{"a", "b", "c"} {
		_, err := f.orch.StartGeneration(ctx, f.userID, p.ID, models.GenerationKindBase, baseConfig(prompt))
		require.NoError(t, err)
	}

	requests, err := f.orch.ListRequests(ctx, f.userID, p.ID)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Greater(t, requests[0].ID, requests[2].ID)
}
