package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/imagen"
	"design-lab-backend/internal/logger"
	"design-lab-backend/internal/models"
	"design-lab-backend/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	genericGenerationFailure     = "image generation failed, please try again"
	interruptedGenerationFailure = "image generation was interrupted, please try again"
)

// GenerationProvider turns a design config into raster images.
type GenerationProvider interface {
	GenerateBaseDesign(ctx context.Context, in imagen.BaseDesignInput) (*imagen.BaseDesignResult, error)
	GenerateTypographyIteration(ctx context.Context, in imagen.TypographyInput) (*imagen.TypographyResult, error)
}

type OrchestratorDeps struct {
	Store      store.Gateway
	Versions   *VersionManager
	Provider   GenerationProvider
	Compositor *Compositor
	// Variants and Host are optional.
	Variants  store.VariantLookup
	Host      ImageHost
	Scheduler Scheduler
	Log       *logger.Logger
	// Exclusive rejects a new generation while another one for the same project is active.
	Exclusive bool
}

// Orchestrator accepts generation requests and drives them to a terminal
// status on a detached task.
type Orchestrator struct {
	store      store.Gateway
	versions   *VersionManager
	provider   GenerationProvider
	compositor *Compositor
	variants   store.VariantLookup
	host       ImageHost
	scheduler  Scheduler
	log        *logger.Logger
	exclusive  bool
	validate   *validator.Validate
	now        func() time.Time
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Orchestrator{
		store:      deps.Store,
		versions:   deps.Versions,
		provider:   deps.Provider,
		compositor: deps.Compositor,
		variants:   deps.Variants,
		host:       deps.Host,
		scheduler:  deps.Scheduler,
		log:        deps.Log.With("service", "Orchestrator"),
		exclusive:  deps.Exclusive,
		validate:   validate,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type generationJob struct {
	requestID  int64
	projectID  uuid.UUID
	userID     uuid.UUID
	kind       models.GenerationKind
	base       *models.BaseGenerationConfig
	typography *models.TypographyConfig
}

type generationOutput struct {
	front    string
	back     string
	metadata models.GenerationMetadata
}

// StartGeneration validates the config, records a processing request and
// hands the provider work to the scheduler. It never waits on the provider.
func (o *Orchestrator) StartGeneration(ctx context.Context, userID, projectID uuid.UUID, kind models.GenerationKind, rawConfig json.RawMessage) (*models.GenerationRequest, error) {
	job := generationJob{projectID: projectID, userID: userID, kind: kind}
	config, err := o.parseConfig(&job, rawConfig)
	if err != nil {
		return nil, err
	}

	project, err := o.versions.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	switch project.Status {
	case models.ProjectStatusArchived, models.ProjectStatusFinalized:
		return nil, apperr.Conflict("project is %s", project.Status)
	}
	if o.exclusive {
		if err := o.ensureNoActiveRequest(ctx, project.ID); err != nil {
			return nil, err
		}
	}

	initial, err := Transition(GenerationState{}, EventRequestCreated)
	if err != nil {
		return nil, err
	}
	startedAt := o.now()
	req, err := o.store.CreateGenerationRequest(ctx, &models.GenerationRequest{
		Code:      newRequestCode(),
		ProjectID: project.ID,
		UserID:    userID,
		Kind:      kind,
		Config:    config,
		Status:    initial.Status,
		Progress:  initial.Progress,
		StartedAt: &startedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	job.requestID = req.ID

	generating := models.ProjectStatusGenerating
	if _, err := o.store.UpdateProject(ctx, project.ID, models.ProjectPatch{Status: &generating}); err != nil {
		o.fail(ctx, job, err, o.log.With("request_id", req.ID))
		return nil, fmt.Errorf("failed to mark project generating: %w", err)
	}

	o.log.Info("generation accepted", "request_id", req.ID, "code", req.Code, "project_id", project.ID, "kind", kind)
	o.scheduler.Go(func(taskCtx context.Context) {
		o.run(taskCtx, job)
	})
	return req, nil
}

// parseConfig decodes and validates the kind specific config and returns its
// normalized JSON for storage.
func (o *Orchestrator) parseConfig(job *generationJob, raw json.RawMessage) (json.RawMessage, error) {
	if !job.kind.Valid() {
		return nil, apperr.Validation("kind must be %s or %s", models.GenerationKindBase, models.GenerationKindTypography)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.Validation("config is required")
	}

	var target interface{}
	switch job.kind {
	case models.GenerationKindBase:
		cfg := &models.BaseGenerationConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, apperr.Validation("config is not valid: %v", err)
		}
		cfg.Prompt = strings.TrimSpace(cfg.Prompt)
		cfg.Style = strings.TrimSpace(cfg.Style)
		cfg.ProductType = strings.TrimSpace(cfg.ProductType)
		cfg.ColorPalette = strings.TrimSpace(cfg.ColorPalette)
		cfg.Mood = strings.TrimSpace(cfg.Mood)
		cfg.NegativePrompt = strings.TrimSpace(cfg.NegativePrompt)
		job.base = cfg
		target = cfg
	case models.GenerationKindTypography:
		cfg := &models.TypographyConfig{}
		if err := json.Unmarshal(raw, cfg); err != nil {
			return nil, apperr.Validation("config is not valid: %v", err)
		}
		cfg.TextContent = strings.TrimSpace(cfg.TextContent)
		cfg.FontFamily = strings.TrimSpace(cfg.FontFamily)
		cfg.TextColor = strings.TrimSpace(cfg.TextColor)
		cfg.FocusArea = strings.TrimSpace(cfg.FocusArea)
		cfg.Style = strings.TrimSpace(cfg.Style)
		job.typography = cfg
		target = cfg
	}

	if err := o.validate.Struct(target); err != nil {
		return nil, apperr.Validation("%s", validationMessage(err))
	}
	normalized, err := json.Marshal(target)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := "config." + fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt", "lte":
		return field + " is out of range"
	case "hexcolor":
		return field + " must be a hex color"
	default:
		return field + " is invalid"
	}
}

func (o *Orchestrator) ensureNoActiveRequest(ctx context.Context, projectID uuid.UUID) error {
	requests, err := o.store.ListGenerationRequestsByProject(ctx, projectID)
	if err != nil {
		return err
	}
	for _, r := range requests {
		if !r.Status.IsTerminal() {
			return apperr.Conflict("generation %s is already running for this project", r.Code)
		}
	}
	return nil
}

// run is the detached task. Every write to the request goes through the state
// machine and stops as soon as the request turned terminal.
func (o *Orchestrator) run(ctx context.Context, job generationJob) {
	log := o.log.With("request_id", job.requestID, "project_id", job.projectID, "kind", job.kind)
	var version *models.Version

	defer func() {
		if r := recover(); r != nil {
			log.Error("generation task panicked", "panic", fmt.Sprint(r))
			if version == nil {
				o.fail(ctx, job, errors.New("internal error"), log)
				return
			}
			o.finish(ctx, job, version, log)
		}
	}()

	if active, err := o.advance(ctx, job.requestID, EventProviderAccepted, models.GenerationRequestPatch{}); err != nil {
		o.fail(ctx, job, err, log)
		return
	} else if !active {
		log.Info("request no longer active before provider call")
		return
	}

	output, err := o.callProvider(ctx, job)
	if err != nil {
		o.fail(ctx, job, err, log)
		return
	}

	if active, err := o.advance(ctx, job.requestID, EventProviderReturned, models.GenerationRequestPatch{}); err != nil {
		o.fail(ctx, job, err, log)
		return
	} else if !active {
		log.Info("request cancelled while provider was running, discarding result")
		return
	}

	version, err = o.persistVersion(ctx, job, output, log)
	if err != nil {
		o.fail(ctx, job, err, log)
		return
	}

	// From here on the version is the deliverable; later failures are logged only.
	version = o.compositeBestEffort(ctx, job, version, log)
	o.finish(ctx, job, version, log)
}

func (o *Orchestrator) callProvider(ctx context.Context, job generationJob) (*generationOutput, error) {
	switch job.kind {
	case models.GenerationKindBase:
		cfg := job.base
		result, err := o.provider.GenerateBaseDesign(ctx, imagen.BaseDesignInput{
			Prompt:         cfg.Prompt,
			Style:          cfg.Style,
			ProductType:    cfg.ProductType,
			ColorPalette:   cfg.ColorPalette,
			Mood:           cfg.Mood,
			NegativePrompt: cfg.NegativePrompt,
		})
		if err != nil {
			return nil, err
		}
		return &generationOutput{
			front: result.FrontImageBase64,
			back:  result.BackImageBase64,
			metadata: models.GenerationMetadata{
				Kind:         job.kind,
				RequestID:    job.requestID,
				Prompt:       cfg.Prompt,
				Provider:     result.Provider,
				ModelVersion: result.ModelVersion,
				DurationMs:   result.DurationMs,
			},
		}, nil

	case models.GenerationKindTypography:
		cfg := job.typography
		in := imagen.TypographyInput{
			TextContent: cfg.TextContent,
			FontFamily:  cfg.FontFamily,
			FontSize:    cfg.FontSize,
			TextColor:   cfg.TextColor,
			FocusArea:   cfg.FocusArea,
			Style:       cfg.Style,
		}
		if err := o.resolveBaseImage(ctx, job.projectID, &in); err != nil {
			return nil, err
		}
		result, err := o.provider.GenerateTypographyIteration(ctx, in)
		if err != nil {
			return nil, err
		}
		return &generationOutput{
			front: result.ModifiedImageBase64,
			metadata: models.GenerationMetadata{
				Kind:       job.kind,
				RequestID:  job.requestID,
				Prompt:     cfg.TextContent,
				Provider:   result.Provider,
				DurationMs: result.DurationMs,
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported generation kind %q", job.kind)
}

// resolveBaseImage points the typography input at the front image of the
// project's current version, inline when it is still an embedded payload.
func (o *Orchestrator) resolveBaseImage(ctx context.Context, projectID uuid.UUID, in *imagen.TypographyInput) error {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.CurrentVersionID == nil {
		return apperr.Validation("project has no current version to iterate on")
	}
	current, err := o.store.GetVersion(ctx, *project.CurrentVersionID)
	if err != nil {
		return err
	}
	if current.FrontImageURL == nil || strings.TrimSpace(*current.FrontImageURL) == "" {
		return apperr.Validation("current version has no front image to iterate on")
	}

	if payload, ok := UnwrapEmbeddedImage(*current.FrontImageURL); ok {
		in.BaseImageBase64 = payload
	} else {
		in.BaseImageURL = strings.TrimSpace(*current.FrontImageURL)
	}
	return nil
}

func (o *Orchestrator) persistVersion(ctx context.Context, job generationJob, output *generationOutput, log *logger.Logger) (*models.Version, error) {
	frontURL, err := o.hostImage(ctx, imagePath(job, "front"), output.front, log)
	if err != nil {
		return nil, err
	}
	meta := output.metadata
	draft := &models.Version{
		ProjectID:     job.projectID,
		FrontImageURL: &frontURL,
		Generation:    &meta,
		CreatedBy:     job.userID,
	}
	if job.kind == models.GenerationKindBase && output.back != "" {
		backURL, err := o.hostImage(ctx, imagePath(job, "back"), output.back, log)
		if err != nil {
			return nil, err
		}
		draft.BackImageURL = &backURL
	}
	return o.versions.appendVersion(ctx, draft)
}

// hostImage uploads a generated raster. Without a host, or when the upload
// fails, the raster is kept inline as a data URL.
func (o *Orchestrator) hostImage(ctx context.Context, path, b64 string, log *logger.Logger) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return "", fmt.Errorf("provider returned an invalid image: %w", err)
	}
	if o.host == nil {
		return EmbedPNG(data), nil
	}
	url, err := o.host.UploadImage(ctx, path, data)
	if err != nil {
		log.Warn("image upload failed, keeping it embedded", "path", path, "error", err)
		return EmbedPNG(data), nil
	}
	return url, nil
}

func imagePath(job generationJob, name string) string {
	return fmt.Sprintf("design-lab/%s/%d/%s.png", job.projectID, job.requestID, name)
}

// compositeBestEffort never lets compositing take the request down, panics included.
func (o *Orchestrator) compositeBestEffort(ctx context.Context, job generationJob, version *models.Version, log *logger.Logger) (out *models.Version) {
	out = version
	defer func() {
		if r := recover(); r != nil {
			log.Warn("compositing panicked, keeping version without previews", "version_id", version.ID, "panic", fmt.Sprint(r))
			out = version
		}
	}()
	return o.composite(ctx, job, version, log)
}

// composite previews the version on the variant templates. Failures are
// logged and the version is returned unchanged.
func (o *Orchestrator) composite(ctx context.Context, job generationJob, version *models.Version, log *logger.Logger) *models.Version {
	if o.compositor == nil || o.variants == nil {
		return version
	}
	project, err := o.store.GetProject(ctx, job.projectID)
	if err != nil {
		log.Warn("skipping compositing, project lookup failed", "error", err)
		return version
	}
	if project.VariantID == nil {
		return version
	}
	variant, err := o.variants.GetVariant(ctx, *project.VariantID)
	if err != nil {
		log.Warn("skipping compositing, variant lookup failed", "variant_id", *project.VariantID, "error", err)
		return version
	}

	var front, back string
	var g errgroup.Group
	if variant.FrontTemplateURL != nil && version.FrontImageURL != nil {
		g.Go(func() error {
			front = o.compositeSide(ctx, *variant.FrontTemplateURL, *version.FrontImageURL, imagePath(job, "front_composite"), "front", log)
			return nil
		})
	}
	if variant.BackTemplateURL != nil && version.BackImageURL != nil {
		g.Go(func() error {
			back = o.compositeSide(ctx, *variant.BackTemplateURL, *version.BackImageURL, imagePath(job, "back_composite"), "back", log)
			return nil
		})
	}
	_ = g.Wait()

	patch := models.VersionPatch{}
	if front != "" {
		patch.FrontCompositeURL = &front
	}
	if back != "" {
		patch.BackCompositeURL = &back
	}
	if patch.FrontCompositeURL == nil && patch.BackCompositeURL == nil {
		return version
	}
	updated, err := o.store.UpdateVersion(ctx, version.ID, patch)
	if err != nil {
		log.Warn("failed to store composite urls", "version_id", version.ID, "error", err)
		return version
	}
	return updated
}

// compositeSide returns the composite URL for one side, or "" when it failed.
func (o *Orchestrator) compositeSide(ctx context.Context, templateURL, designURL, path, side string, log *logger.Logger) (url string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("compositing panicked", "side", side, "panic", fmt.Sprint(r))
			url = ""
		}
	}()
	url, err := o.compositor.CompositeDesignOnTemplate(ctx, templateURL, designURL, path)
	if err != nil {
		log.Warn("compositing failed", "side", side, "error", err)
		return ""
	}
	return url
}

// finish repoints the project and only then marks the request completed, so a
// poller that observes completed also observes the new current version. When a
// cancel lands between the two writes the previous pointer is put back.
func (o *Orchestrator) finish(ctx context.Context, job generationJob, version *models.Version, log *logger.Logger) {
	req, err := o.store.GetGenerationRequest(ctx, job.requestID)
	if err != nil {
		log.Error("failed to reload request before completion", "error", err)
		return
	}
	if req.Status.IsTerminal() {
		log.Info("request turned terminal before completion, leaving project pointer", "status", req.Status, "version_id", version.ID)
		return
	}

	previous, err := o.store.GetProject(ctx, job.projectID)
	if err != nil {
		log.Error("failed to load project before repointing", "error", err)
		return
	}

	inProgress := models.ProjectStatusInProgress
	repointed := true
	if _, err := o.store.UpdateProject(ctx, job.projectID, models.ProjectPatch{
		CurrentVersionID: &version.ID,
		Status:           &inProgress,
	}); err != nil {
		repointed = false
		log.Error("failed to repoint project to generated version", "version_id", version.ID, "error", err)
	}

	completedAt := o.now()
	active, err := o.advance(ctx, job.requestID, EventCompositingAttempted, models.GenerationRequestPatch{
		VersionID:   &version.ID,
		CompletedAt: &completedAt,
	})
	if err != nil {
		log.Error("failed to mark request completed", "version_id", version.ID, "error", err)
		return
	}
	if !active {
		log.Info("request turned terminal before completion, restoring previous version", "version_id", version.ID)
		if repointed {
			o.restorePointer(ctx, previous, version.ID, log)
		}
		return
	}
	log.Info("generation completed", "version_id", version.ID, "version_number", version.VersionNumber)
}

// restorePointer undoes finish's repoint unless someone moved the pointer since.
func (o *Orchestrator) restorePointer(ctx context.Context, previous *models.Project, generated uuid.UUID, log *logger.Logger) {
	current, err := o.store.GetProject(ctx, previous.ID)
	if err != nil {
		log.Error("failed to reload project for pointer restore", "error", err)
		return
	}
	if current.CurrentVersionID == nil || *current.CurrentVersionID != generated {
		return
	}

	status := previous.Status
	if status == models.ProjectStatusGenerating {
		status = models.ProjectStatusDraft
	}
	if _, err := o.store.UpdateProject(ctx, previous.ID, models.ProjectPatch{
		CurrentVersionID: previous.CurrentVersionID,
		Status:           &status,
	}); err != nil {
		log.Error("failed to restore previous version pointer", "error", err)
	}
}

// advance applies ev to the stored request. It reports false when the request
// is already terminal and nothing was written.
func (o *Orchestrator) advance(ctx context.Context, requestID int64, ev GenerationEvent, patch models.GenerationRequestPatch) (bool, error) {
	req, err := o.store.GetGenerationRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	next, err := Transition(GenerationState{Status: req.Status, Progress: req.Progress}, ev)
	if err != nil {
		if req.Status.IsTerminal() {
			return false, nil
		}
		return false, err
	}
	patch.Status = &next.Status
	patch.Progress = &next.Progress
	_, ok, err := o.store.UpdateGenerationRequestUnlessTerminal(ctx, requestID, patch)
	return ok, err
}

// fail records cause on the request and reverts the project to draft. It is
// only used before a version exists.
func (o *Orchestrator) fail(ctx context.Context, job generationJob, cause error, log *logger.Logger) {
	log.Error("generation failed", "error", cause)

	message := userFacingMessage(cause)
	completedAt := o.now()
	active, err := o.advance(ctx, job.requestID, EventStepFailed, models.GenerationRequestPatch{
		ErrorMessage: &message,
		CompletedAt:  &completedAt,
	})
	if err != nil {
		log.Error("failed to record generation failure", "error", err)
		return
	}
	if !active {
		return
	}

	draft := models.ProjectStatusDraft
	if _, err := o.store.UpdateProject(ctx, job.projectID, models.ProjectPatch{Status: &draft}); err != nil {
		log.Error("failed to revert project to draft", "error", err)
	}
}

func userFacingMessage(err error) string {
	var perr *imagen.ProviderError
	if errors.As(err, &perr) {
		return perr.UserMessage()
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Status < 500 && ae.Message != "" {
		return ae.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "image generation timed out"
	}
	return genericGenerationFailure
}

// Cancel moves an active request to cancelled. In-flight provider calls are
// not interrupted; the task notices the terminal status at its next step.
func (o *Orchestrator) Cancel(ctx context.Context, userID uuid.UUID, ref string) (*models.GenerationRequest, error) {
	req, err := o.GetRequest(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	next, err := Transition(GenerationState{Status: req.Status, Progress: req.Progress}, EventCancelRequested)
	if err != nil {
		return nil, apperr.Conflict("generation request is already %s", req.Status)
	}

	completedAt := o.now()
	updated, ok, err := o.store.UpdateGenerationRequestUnlessTerminal(ctx, req.ID, models.GenerationRequestPatch{
		Status:      &next.Status,
		CompletedAt: &completedAt,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		if updated == nil {
			return nil, apperr.Conflict("generation request is no longer active")
		}
		return nil, apperr.Conflict("generation request is already %s", updated.Status)
	}

	project, err := o.store.GetProject(ctx, req.ProjectID)
	if err == nil && project.Status == models.ProjectStatusGenerating {
		draft := models.ProjectStatusDraft
		if _, err := o.store.UpdateProject(ctx, project.ID, models.ProjectPatch{Status: &draft}); err != nil {
			o.log.Warn("failed to revert project after cancel", "project_id", project.ID, "error", err)
		}
	}

	o.log.Info("generation cancelled", "request_id", req.ID, "project_id", req.ProjectID)
	return updated, nil
}

// FailInterrupted fails requests left pending or processing by a previous
// process: no task writes them anymore, so without this they never turn
// terminal. Only requests untouched for staleAfter are considered, which
// leaves work owned by other live instances alone.
func (o *Orchestrator) FailInterrupted(ctx context.Context, staleAfter time.Duration) (int, error) {
	stale, err := o.store.ListUnfinishedGenerationRequests(ctx, o.now().Add(-staleAfter))
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, req := range stale {
		next, err := Transition(GenerationState{Status: req.Status, Progress: req.Progress}, EventStepFailed)
		if err != nil {
			continue
		}
		message := interruptedGenerationFailure
		completedAt := o.now()
		_, ok, err := o.store.UpdateGenerationRequestUnlessTerminal(ctx, req.ID, models.GenerationRequestPatch{
			Status:       &next.Status,
			ErrorMessage: &message,
			CompletedAt:  &completedAt,
		})
		if err != nil {
			return failed, fmt.Errorf("failed to fail interrupted request %d: %w", req.ID, err)
		}
		if !ok {
			continue
		}
		failed++

		project, err := o.store.GetProject(ctx, req.ProjectID)
		if err == nil && project.Status == models.ProjectStatusGenerating {
			draft := models.ProjectStatusDraft
			if _, err := o.store.UpdateProject(ctx, project.ID, models.ProjectPatch{Status: &draft}); err != nil {
				o.log.Warn("failed to revert project after interrupted generation", "project_id", project.ID, "error", err)
			}
		}
		o.log.Warn("generation interrupted by restart", "request_id", req.ID, "project_id", req.ProjectID, "status", req.Status, "progress", req.Progress)
	}
	return failed, nil
}

// GetRequest looks a request up by numeric id or by its code.
func (o *Orchestrator) GetRequest(ctx context.Context, userID uuid.UUID, ref string) (*models.GenerationRequest, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.NotFound("generation request")
	}

	var (
		req *models.GenerationRequest
		err error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		req, err = o.store.GetGenerationRequest(ctx, id)
	} else {
		req, err = o.store.GetGenerationRequestByCode(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, apperr.NotFound("generation request")
	}
	return req, nil
}

func (o *Orchestrator) ListRequests(ctx context.Context, userID, projectID uuid.UUID) ([]models.GenerationRequest, error) {
	project, err := o.versions.ownedProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return o.store.ListGenerationRequestsByProject(ctx, project.ID)
}

func newRequestCode() string {
	return "gen_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
