package handlers

import (
	"net/http"

	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type VersionsHandler struct {
	versions *services.VersionManager
}

func NewVersionsHandler(versions *services.VersionManager) *VersionsHandler {
	return &VersionsHandler{versions: versions}
}

// ListVersions godoc
// @Summary     List versions
// @Description Versions are returned oldest first by version number
// @Tags        versions
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.VersionListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions [get]
func (h *VersionsHandler) ListVersions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	versions, err := h.versions.ListVersions(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err, "failed to list versions")
		return
	}
	c.JSON(http.StatusOK, models.VersionListResponse{Versions: versions})
}

// CreateVersion godoc
// @Summary     Create a version
// @Description Appends a version and makes it current, optionally copying the layers of another version
// @Tags        versions
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       request body models.CreateVersionRequest false "Version"
// @Success     201 {object} models.Version
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions [post]
func (h *VersionsHandler) CreateVersion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	var req models.CreateVersionRequest
	// An empty body creates a blank version.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	version, err := h.versions.CreateVersion(c.Request.Context(), userID, projectID, req)
	if err != nil {
		respondError(c, err, "failed to create version")
		return
	}
	c.JSON(http.StatusCreated, version)
}

// GetVersion godoc
// @Summary     Get a version
// @Tags        versions
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       version_id path string true "Version ID"
// @Success     200 {object} models.Version
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions/{version_id} [get]
func (h *VersionsHandler) GetVersion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "version_id", "version")
	if !ok {
		return
	}

	version, err := h.versions.GetVersion(c.Request.Context(), userID, projectID, versionID)
	if err != nil {
		respondError(c, err, "failed to get version")
		return
	}
	c.JSON(http.StatusOK, version)
}

// RestoreVersion godoc
// @Summary     Restore a version
// @Description Points the project back at an earlier version
// @Tags        versions
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       version_id path string true "Version ID"
// @Success     200 {object} models.Project
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions/{version_id}/restore [post]
func (h *VersionsHandler) RestoreVersion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}
	versionID, ok := uuidParam(c, "version_id", "version")
	if !ok {
		return
	}

	project, err := h.versions.RestoreVersion(c.Request.Context(), userID, projectID, versionID)
	if err != nil {
		respondError(c, err, "failed to restore version")
		return
	}
	c.JSON(http.StatusOK, project)
}
