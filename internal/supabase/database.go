package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// DatabaseClient is the Postgres backed persistence gateway.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// DB exposes the pool for the migrator.
func (d *DatabaseClient) DB() *sql.DB {
	return d.db
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// setBuilder collects "col = $n" assignments for partial updates.
type setBuilder struct {
	sets []string
	args []interface{}
}

func (b *setBuilder) add(column string, value interface{}) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *setBuilder) arg(value interface{}) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *setBuilder) clause() string {
	return strings.Join(b.sets, ", ")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(what)
	}
	return err
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// ---- projects ----

const projectColumns = `id, user_id, name, description, variant_id, external_job_id, status,
	current_version_id, metadata, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p              models.Project
		variantID      uuid.NullUUID
		externalJobID  sql.NullString
		currentVersion uuid.NullUUID
		metadata       []byte
	)
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &variantID, &externalJobID, &p.Status,
		&currentVersion, &metadata, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if variantID.Valid {
		p.VariantID = &variantID.UUID
	}
	if externalJobID.Valid {
		p.ExternalJobID = &externalJobID.String
	}
	if currentVersion.Valid {
		p.CurrentVersionID = &currentVersion.UUID
	}
	if len(metadata) > 0 {
		p.Metadata = metadata
	}
	return &p, nil
}

func (d *DatabaseClient) CreateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	id := project.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := project.Status
	if status == "" {
		status = models.ProjectStatusDraft
	}

	p, err := scanProject(d.db.QueryRowContext(ctx, `
		INSERT INTO design_projects (id, user_id, name, description, variant_id, external_job_id, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+projectColumns,
		id, project.UserID, project.Name, project.Description, project.VariantID, project.ExternalJobID,
		status, nullJSON(project.Metadata),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return p, nil
}

func (d *DatabaseClient) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := scanProject(d.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM design_projects
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

func (d *DatabaseClient) ListProjectsByUser(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]models.Project, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM design_projects
		WHERE user_id = $1 AND ($2 OR status <> 'archived')
		ORDER BY created_at DESC
	`, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (d *DatabaseClient) UpdateProject(ctx context.Context, id uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	b := &setBuilder{}
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	if patch.Description != nil {
		b.add("description", *patch.Description)
	}
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	if patch.CurrentVersionID != nil {
		b.add("current_version_id", *patch.CurrentVersionID)
	}
	b.sets = append(b.sets, "updated_at = NOW()")
	where := b.arg(id)

	p, err := scanProject(d.db.QueryRowContext(ctx, `
		UPDATE design_projects
		SET `+b.clause()+`
		WHERE id = `+where+`
		RETURNING `+projectColumns, b.args...))
	if err != nil {
		return nil, notFound(err, "project")
	}
	return p, nil
}

// ---- versions ----

const versionColumns = `id, project_id, version_number, name, front_image_url, back_image_url,
	front_composite_url, back_composite_url, generation_metadata, created_by, created_at`

func scanVersion(row rowScanner) (*models.Version, error) {
	var (
		v                                     models.Version
		front, back, frontComposite, backComp sql.NullString
		generation                            []byte
	)
	if err := row.Scan(
		&v.ID, &v.ProjectID, &v.VersionNumber, &v.Name, &front, &back,
		&frontComposite, &backComp, &generation, &v.CreatedBy, &v.CreatedAt,
	); err != nil {
		return nil, err
	}
	v.FrontImageURL = nullStringPtr(front)
	v.BackImageURL = nullStringPtr(back)
	v.FrontCompositeURL = nullStringPtr(frontComposite)
	v.BackCompositeURL = nullStringPtr(backComp)
	if len(generation) > 0 {
		var meta models.GenerationMetadata
		if err := json.Unmarshal(generation, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode generation metadata: %w", err)
		}
		v.Generation = &meta
	}
	return &v, nil
}

// CreateVersion locks the parent project row so concurrent inserts see each
// other's numbers; the unique (project_id, version_number) constraint backs it up.
func (d *DatabaseClient) CreateVersion(ctx context.Context, version *models.Version) (*models.Version, error) {
	id := version.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var generation []byte
	if version.Generation != nil {
		raw, err := json.Marshal(version.Generation)
		if err != nil {
			return nil, fmt.Errorf("failed to encode generation metadata: %w", err)
		}
		generation = raw
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var locked uuid.UUID
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM design_projects WHERE id = $1 FOR UPDATE`, version.ProjectID,
	).Scan(&locked); err != nil {
		return nil, notFound(err, "project")
	}

	v, err := scanVersion(tx.QueryRowContext(ctx, `
		INSERT INTO design_versions (id, project_id, version_number, name, front_image_url, back_image_url,
			front_composite_url, back_composite_url, generation_metadata, created_by)
		SELECT $1::uuid, $2::uuid, next.n, COALESCE(NULLIF($3::text, ''), 'Version ' || next.n),
			$4::text, $5::text, $6::text, $7::text, $8::jsonb, $9::uuid
		FROM (
			SELECT COALESCE(MAX(version_number), 0) + 1 AS n
			FROM design_versions
			WHERE project_id = $2::uuid
		) next
		RETURNING `+versionColumns,
		id, version.ProjectID, version.Name, version.FrontImageURL, version.BackImageURL,
		version.FrontCompositeURL, version.BackCompositeURL, nullJSON(generation), version.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}
	return v, nil
}

func (d *DatabaseClient) GetVersion(ctx context.Context, id uuid.UUID) (*models.Version, error) {
	v, err := scanVersion(d.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM design_versions
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "version")
	}
	return v, nil
}

func (d *DatabaseClient) ListVersionsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Version, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM design_versions
		WHERE project_id = $1
		ORDER BY version_number ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := make([]models.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}
	return versions, rows.Err()
}

func (d *DatabaseClient) UpdateVersion(ctx context.Context, id uuid.UUID, patch models.VersionPatch) (*models.Version, error) {
	b := &setBuilder{}
	if patch.FrontImageURL != nil {
		b.add("front_image_url", *patch.FrontImageURL)
	}
	if patch.BackImageURL != nil {
		b.add("back_image_url", *patch.BackImageURL)
	}
	if patch.FrontCompositeURL != nil {
		b.add("front_composite_url", *patch.FrontCompositeURL)
	}
	if patch.BackCompositeURL != nil {
		b.add("back_composite_url", *patch.BackCompositeURL)
	}
	if len(b.sets) == 0 {
		return d.GetVersion(ctx, id)
	}
	where := b.arg(id)

	v, err := scanVersion(d.db.QueryRowContext(ctx, `
		UPDATE design_versions
		SET `+b.clause()+`
		WHERE id = `+where+`
		RETURNING `+versionColumns, b.args...))
	if err != nil {
		return nil, notFound(err, "version")
	}
	return v, nil
}

// ---- layers ----

const layerColumns = `id, version_id, type, name, z_index, position, visible, locked, opacity,
	blend_mode, text_content, image_url, style, created_at, updated_at`

func scanLayer(row rowScanner) (*models.Layer, error) {
	var (
		l                     models.Layer
		position, style       []byte
		textContent, imageURL sql.NullString
	)
	if err := row.Scan(
		&l.ID, &l.VersionID, &l.Type, &l.Name, &l.ZIndex, &position, &l.Visible, &l.Locked, &l.Opacity,
		&l.BlendMode, &textContent, &imageURL, &style, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(position) > 0 {
		if err := json.Unmarshal(position, &l.Position); err != nil {
			return nil, fmt.Errorf("failed to decode layer position: %w", err)
		}
	}
	l.TextContent = nullStringPtr(textContent)
	l.ImageURL = nullStringPtr(imageURL)
	if len(style) > 0 {
		l.Style = style
	}
	return &l, nil
}

func (d *DatabaseClient) CreateLayer(ctx context.Context, layer *models.Layer) (*models.Layer, error) {
	id := layer.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	position, err := json.Marshal(layer.Position)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layer position: %w", err)
	}

	l, err := scanLayer(d.db.QueryRowContext(ctx, `
		INSERT INTO design_layers (id, version_id, type, name, z_index, position, visible, locked, opacity,
			blend_mode, text_content, image_url, style)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+layerColumns,
		id, layer.VersionID, string(layer.Type), layer.Name, layer.ZIndex, string(position), layer.Visible,
		layer.Locked, layer.Opacity, layer.BlendMode, layer.TextContent, layer.ImageURL, nullJSON(layer.Style),
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return nil, apperr.NotFound("version")
		}
		return nil, fmt.Errorf("failed to create layer: %w", err)
	}
	return l, nil
}

func (d *DatabaseClient) GetLayer(ctx context.Context, id uuid.UUID) (*models.Layer, error) {
	l, err := scanLayer(d.db.QueryRowContext(ctx, `
		SELECT `+layerColumns+`
		FROM design_layers
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "layer")
	}
	return l, nil
}

func (d *DatabaseClient) ListLayersByVersion(ctx context.Context, versionID uuid.UUID) ([]models.Layer, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+layerColumns+`
		FROM design_layers
		WHERE version_id = $1
		ORDER BY z_index ASC, created_at ASC
	`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list layers: %w", err)
	}
	defer rows.Close()

	layers := make([]models.Layer, 0)
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		layers = append(layers, *l)
	}
	return layers, rows.Err()
}

func (d *DatabaseClient) UpdateLayer(ctx context.Context, id uuid.UUID, patch models.LayerPatch) (*models.Layer, error) {
	b := &setBuilder{}
	if patch.Name != nil {
		b.add("name", *patch.Name)
	}
	if patch.ZIndex != nil {
		b.add("z_index", *patch.ZIndex)
	}
	if patch.Position != nil {
		position, err := json.Marshal(patch.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to encode layer position: %w", err)
		}
		b.add("position", string(position))
	}
	if patch.Visible != nil {
		b.add("visible", *patch.Visible)
	}
	if patch.Locked != nil {
		b.add("locked", *patch.Locked)
	}
	if patch.Opacity != nil {
		b.add("opacity", *patch.Opacity)
	}
	if patch.BlendMode != nil {
		b.add("blend_mode", *patch.BlendMode)
	}
	if patch.TextContent != nil {
		b.add("text_content", *patch.TextContent)
	}
	if patch.ImageURL != nil {
		b.add("image_url", *patch.ImageURL)
	}
	if patch.Style != nil {
		b.add("style", nullJSON(patch.Style))
	}
	b.sets = append(b.sets, "updated_at = NOW()")
	where := b.arg(id)

	l, err := scanLayer(d.db.QueryRowContext(ctx, `
		UPDATE design_layers
		SET `+b.clause()+`
		WHERE id = `+where+`
		RETURNING `+layerColumns, b.args...))
	if err != nil {
		return nil, notFound(err, "layer")
	}
	return l, nil
}

func (d *DatabaseClient) DeleteLayer(ctx context.Context, id uuid.UUID) error {
	res, err := d.db.ExecContext(ctx, `DELETE FROM design_layers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete layer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("layer")
	}
	return nil
}

// ---- generation requests ----

const requestColumns = `id, code, project_id, user_id, kind, config, status, progress, version_id,
	error_message, started_at, completed_at, created_at, updated_at`

func scanRequest(row rowScanner) (*models.GenerationRequest, error) {
	var (
		r            models.GenerationRequest
		config       []byte
		versionID    uuid.NullUUID
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&r.ID, &r.Code, &r.ProjectID, &r.UserID, &r.Kind, &config, &r.Status, &r.Progress, &versionID,
		&errorMessage, &startedAt, &completedAt, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Config = config
	if versionID.Valid {
		r.VersionID = &versionID.UUID
	}
	r.ErrorMessage = nullStringPtr(errorMessage)
	if startedAt.Valid {
		r.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return &r, nil
}

func (d *DatabaseClient) CreateGenerationRequest(ctx context.Context, req *models.GenerationRequest) (*models.GenerationRequest, error) {
	config := req.Config
	if len(config) == 0 {
		config = []byte("{}")
	}

	r, err := scanRequest(d.db.QueryRowContext(ctx, `
		INSERT INTO generation_requests (code, project_id, user_id, kind, config, status, progress, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+requestColumns,
		req.Code, req.ProjectID, req.UserID, string(req.Kind), string(config), string(req.Status),
		req.Progress, req.StartedAt,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, apperr.Conflict("generation request code %q already exists", req.Code)
		}
		return nil, fmt.Errorf("failed to create generation request: %w", err)
	}
	return r, nil
}

func (d *DatabaseClient) GetGenerationRequest(ctx context.Context, id int64) (*models.GenerationRequest, error) {
	r, err := scanRequest(d.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM generation_requests
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "generation request")
	}
	return r, nil
}

func (d *DatabaseClient) GetGenerationRequestByCode(ctx context.Context, code string) (*models.GenerationRequest, error) {
	r, err := scanRequest(d.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM generation_requests
		WHERE code = $1
	`, code))
	if err != nil {
		return nil, notFound(err, "generation request")
	}
	return r, nil
}

func (d *DatabaseClient) ListGenerationRequestsByProject(ctx context.Context, projectID uuid.UUID) ([]models.GenerationRequest, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM generation_requests
		WHERE project_id = $1
		ORDER BY id DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.GenerationRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func (d *DatabaseClient) ListUnfinishedGenerationRequests(ctx context.Context, updatedBefore time.Time) ([]models.GenerationRequest, error) {
	terminal := make([]string, 0, len(models.TerminalGenerationStatuses))
	for _, s := range models.TerminalGenerationStatuses {
		terminal = append(terminal, string(s))
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM generation_requests
		WHERE status <> ALL($1) AND updated_at < $2
		ORDER BY id ASC
	`, pq.Array(terminal), updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list unfinished generation requests: %w", err)
	}
	defer rows.Close()

	requests := make([]models.GenerationRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func requestPatchSet(patch models.GenerationRequestPatch) *setBuilder {
	b := &setBuilder{}
	if patch.Status != nil {
		b.add("status", string(*patch.Status))
	}
	if patch.Progress != nil {
		b.add("progress", *patch.Progress)
	}
	if patch.VersionID != nil {
		b.add("version_id", *patch.VersionID)
	}
	if patch.ErrorMessage != nil {
		b.add("error_message", *patch.ErrorMessage)
	}
	if patch.StartedAt != nil {
		b.add("started_at", *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		b.add("completed_at", *patch.CompletedAt)
	}
	b.sets = append(b.sets, "updated_at = NOW()")
	return b
}

func (d *DatabaseClient) UpdateGenerationRequest(ctx context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, error) {
	b := requestPatchSet(patch)
	where := b.arg(id)

	r, err := scanRequest(d.db.QueryRowContext(ctx, `
		UPDATE generation_requests
		SET `+b.clause()+`
		WHERE id = `+where+`
		RETURNING `+requestColumns, b.args...))
	if err != nil {
		return nil, notFound(err, "generation request")
	}
	return r, nil
}

// UpdateGenerationRequestUnlessTerminal guards the write with the status in the
// WHERE clause, so a concurrent cancel and a task update cannot both win.
func (d *DatabaseClient) UpdateGenerationRequestUnlessTerminal(ctx context.Context, id int64, patch models.GenerationRequestPatch) (*models.GenerationRequest, bool, error) {
	terminal := make([]string, 0, len(models.TerminalGenerationStatuses))
	for _, s := range models.TerminalGenerationStatuses {
		terminal = append(terminal, string(s))
	}

	b := requestPatchSet(patch)
	where := b.arg(id)
	statuses := b.arg(pq.Array(terminal))

	r, err := scanRequest(d.db.QueryRowContext(ctx, `
		UPDATE generation_requests
		SET `+b.clause()+`
		WHERE id = `+where+` AND status <> ALL(`+statuses+`)
		RETURNING `+requestColumns, b.args...))
	if err == nil {
		return r, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to update generation request: %w", err)
	}

	current, err := d.GetGenerationRequest(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
