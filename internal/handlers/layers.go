package handlers

import (
	"net/http"

	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type LayersHandler struct {
	versions *services.VersionManager
}

func NewLayersHandler(versions *services.VersionManager) *LayersHandler {
	return &LayersHandler{versions: versions}
}

// ListLayers godoc
// @Summary     List layers of a version
// @Description Layers are ordered by z_index, then creation time
// @Tags        layers
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       version_id path string true "Version ID"
// @Success     200 {object} models.LayerListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions/{version_id}/layers [get]
func (h *LayersHandler) ListLayers(c *gin.Context) {
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

	layers, err := h.versions.ListLayers(c.Request.Context(), userID, projectID, versionID)
	if err != nil {
		respondError(c, err, "failed to list layers")
		return
	}
	c.JSON(http.StatusOK, models.LayerListResponse{Layers: layers})
}

// CreateLayer godoc
// @Summary     Add a layer
// @Tags        layers
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       version_id path string true "Version ID"
// @Param       request body models.CreateLayerRequest true "Layer"
// @Success     201 {object} models.Layer
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/versions/{version_id}/layers [post]
func (h *LayersHandler) CreateLayer(c *gin.Context) {
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

	var req models.CreateLayerRequest
	if !bindJSON(c, &req) {
		return
	}

	layer, err := h.versions.CreateLayer(c.Request.Context(), userID, projectID, versionID, req)
	if err != nil {
		respondError(c, err, "failed to create layer")
		return
	}
	c.JSON(http.StatusCreated, layer)
}

// UpdateLayer godoc
// @Summary     Update a layer
// @Tags        layers
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       layer_id path string true "Layer ID"
// @Param       request body models.UpdateLayerRequest true "Fields to change"
// @Success     200 {object} models.Layer
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/layers/{layer_id} [patch]
func (h *LayersHandler) UpdateLayer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}
	layerID, ok := uuidParam(c, "layer_id", "layer")
	if !ok {
		return
	}

	var req models.UpdateLayerRequest
	if !bindJSON(c, &req) {
		return
	}

	layer, err := h.versions.UpdateLayer(c.Request.Context(), userID, projectID, layerID, req)
	if err != nil {
		respondError(c, err, "failed to update layer")
		return
	}
	c.JSON(http.StatusOK, layer)
}

// DeleteLayer godoc
// @Summary     Delete a layer
// @Tags        layers
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       layer_id path string true "Layer ID"
// @Success     204
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/layers/{layer_id} [delete]
func (h *LayersHandler) DeleteLayer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}
	layerID, ok := uuidParam(c, "layer_id", "layer")
	if !ok {
		return
	}

	if err := h.versions.DeleteLayer(c.Request.Context(), userID, projectID, layerID); err != nil {
		respondError(c, err, "failed to delete layer")
		return
	}
	c.Status(http.StatusNoContent)
}
