package handlers

import (
	"errors"
	"net/http"

	"design-lab-backend/internal/apperr"
	"design-lab-backend/internal/middleware"
	"design-lab-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps service errors to their status. Server errors answer with
// a short summary plus the underlying message.
func respondError(c *gin.Context, err error, summary string) {
	status := apperr.StatusOf(err)
	_ = c.Error(err)

	var ae *apperr.Error
	if status < http.StatusInternalServerError && errors.As(err, &ae) {
		c.JSON(status, models.ErrorResponse{Error: ae.Message, Message: ae.Code})
		return
	}
	if status < http.StatusInternalServerError {
		c.JSON(status, models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: summary, Message: err.Error()})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a path parameter; a malformed id can never exist, so it answers 404.
func uuidParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: what + " not found", Message: "not_found"})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return false
	}
	return true
}
