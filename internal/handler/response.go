// Package handler contains the HTTP controllers of the API.
package handler

import (
	"errors"
	"net/http"

	"beatmarket/internal/service"
	"beatmarket/pkg/log"
	"beatmarket/pkg/token"

	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// respondError maps a service error onto its status code. Unknown errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, op string, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("["+op+"] request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		log.Warnw("["+op+"] request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": message})
}

func errorStatus(err error) (int, string) {
	var (
		validationErr    *service.ValidationError
		authorizationErr *service.AuthorizationError
		transportErr     *service.TransportError
		inconsistentErr  *service.InconsistentStateError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &authorizationErr):
		return http.StatusForbidden, authorizationErr.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrProvisioningInProgress),
		errors.Is(err, service.ErrOrderTerminal),
		errors.Is(err, service.ErrObjectExists):
		return http.StatusConflict, err.Error()
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, transportErr.Error()
	case errors.As(err, &inconsistentErr):
		return http.StatusInternalServerError, "payment setup partially applied, support has been notified"
	}
	return http.StatusInternalServerError, "internal server error"
}

// currentUserID returns the subject stored by the auth middleware.
func currentUserID(c *gin.Context) string {
	claimsValue, ok := c.Get("claims")
	if !ok {
		return ""
	}
	claims, ok := claimsValue.(*token.CustomClaims)
	if !ok {
		return ""
	}
	return claims.UserID()
}
