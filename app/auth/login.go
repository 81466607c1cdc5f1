package auth

import (
	"errors"
	"net/http"
	"strings"

	"plaksha/ocr-api/internal"
	"plaksha/ocr-api/internal/service"
	"plaksha/ocr-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		fail(c, http.StatusBadRequest, validators.BindingMessage(err))
		return
	}

	res, err := d.Login.Login(c.Request.Context(), strings.TrimSpace(data.Email), data.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			fail(c, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, service.ErrNotVerified):
			fail(c, http.StatusForbidden, "Please verify your account before using the service")
		default:
			zap.L().Error("Failed to log in user", zap.Error(err), zap.String("requestID", requestID))
			fail(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	startSession(c, d, res.Token)
}
