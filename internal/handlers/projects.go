package handlers

import (
	"net/http"
	"strconv"

	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ProjectsHandler struct {
	versions *services.VersionManager
}

func NewProjectsHandler(versions *services.VersionManager) *ProjectsHandler {
	return &ProjectsHandler{versions: versions}
}

// CreateProject godoc
// @Summary     Create a design project
// @Description Creates a draft project with an empty first version
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateProjectRequest true "Project"
// @Success     201 {object} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /design-lab/projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.versions.CreateProject(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err, "failed to create project")
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects godoc
// @Summary     List design projects
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       include_archived query bool false "Include archived projects"
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /design-lab/projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))

	projects, err := h.versions.ListProjects(c.Request.Context(), userID, includeArchived)
	if err != nil {
		respondError(c, err, "failed to list projects")
		return
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: projects})
}

// GetProject godoc
// @Summary     Get a design project
// @Description Returns the project with its current version and that version's layers
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.ProjectView
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	view, err := h.versions.GetProjectView(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err, "failed to get project")
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateProject godoc
// @Summary     Update a design project
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       request body models.UpdateProjectRequest true "Fields to change"
// @Success     200 {object} models.Project
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id} [patch]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.versions.UpdateProject(c.Request.Context(), userID, projectID, req)
	if err != nil {
		respondError(c, err, "failed to update project")
		return
	}
	c.JSON(http.StatusOK, project)
}

// ArchiveProject godoc
// @Summary     Archive a design project
// @Description Projects are never hard deleted; this marks the project archived
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.Project
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id} [delete]
func (h *ProjectsHandler) ArchiveProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	project, err := h.versions.ArchiveProject(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err, "failed to archive project")
		return
	}
	c.JSON(http.StatusOK, project)
}
