package handlers

import (
	"net/http"
	"strings"

	"design-lab-backend/internal/models"
	"design-lab-backend/internal/services"

	"github.com/gin-gonic/gin"
)

const generationsPath = "/api/v1/design-lab/generations/"

type GenerationsHandler struct {
	orchestrator *services.Orchestrator
	baseURL      string
}

func NewGenerationsHandler(orchestrator *services.Orchestrator, baseURL string) *GenerationsHandler {
	return &GenerationsHandler{
		orchestrator: orchestrator,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// StartGeneration godoc
// @Summary     Start an image generation
// @Description Validates the request and answers immediately; poll the returned URL for progress
// @Tags        generations
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Param       request body models.GenerateRequest true "Generation kind and config"
// @Success     202 {object} models.GenerationAcceptedResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/generations [post]
func (h *GenerationsHandler) StartGeneration(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	var req models.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	accepted, err := h.orchestrator.StartGeneration(c.Request.Context(), userID, projectID, req.Kind, req.Config)
	if err != nil {
		respondError(c, err, "failed to start generation")
		return
	}

	c.JSON(http.StatusAccepted, models.GenerationAcceptedResponse{
		RequestID: accepted.ID,
		Code:      accepted.Code,
		Status:    accepted.Status,
		Progress:  accepted.Progress,
		PollURL:   h.baseURL + generationsPath + accepted.Code,
	})
}

// ListGenerations godoc
// @Summary     List generation requests of a project
// @Description Newest first
// @Tags        generations
// @Produce     json
// @Security    Bearer
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.GenerationListResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/projects/{project_id}/generations [get]
func (h *GenerationsHandler) ListGenerations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "project_id", "project")
	if !ok {
		return
	}

	requests, err := h.orchestrator.ListRequests(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err, "failed to list generations")
		return
	}
	c.JSON(http.StatusOK, models.GenerationListResponse{Requests: requests})
}

// GetGeneration godoc
// @Summary     Poll a generation request
// @Tags        generations
// @Produce     json
// @Security    Bearer
// @Param       ref path string true "Request id or code"
// @Success     200 {object} models.GenerationRequest
// @Failure     404 {object} models.ErrorResponse
// @Router      /design-lab/generations/{ref} [get]
func (h *GenerationsHandler) GetGeneration(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	req, err := h.orchestrator.GetRequest(c.Request.Context(), userID, c.Param("ref"))
	if err != nil {
		respondError(c, err, "failed to get generation")
		return
	}
	c.JSON(http.StatusOK, req)
}

// CancelGeneration godoc
// @Summary     Cancel a generation request
// @Description Only pending or processing requests can be cancelled
// @Tags        generations
// @Produce     json
// @Security    Bearer
// @Param       ref path string true "Request id or code"
// @Success     200 {object} models.GenerationRequest
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /design-lab/generations/{ref}/cancel [post]
func (h *GenerationsHandler) CancelGeneration(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	req, err := h.orchestrator.Cancel(c.Request.Context(), userID, c.Param("ref"))
	if err != nil {
		respondError(c, err, "failed to cancel generation")
		return
	}
	c.JSON(http.StatusOK, req)
}
