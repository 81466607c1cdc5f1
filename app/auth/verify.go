package auth

import (
	"errors"
	"net/http"
	"strings"

	"plaksha/ocr-api/internal"
	"plaksha/ocr-api/internal/service"
	"plaksha/ocr-api/pkg/middleware"
	"plaksha/ocr-api/pkg/security"
	"plaksha/ocr-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type verifyBody struct {
	Email      string `json:"email" binding:"required"`
	VerifyCode string `json:"verifyCode" binding:"required"`
}

func VerifyCode(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBindJSON(&data); err != nil {
		fail(c, http.StatusBadRequest, validators.BindingMessage(err))
		return
	}

	res, err := d.Verification.Verify(c.Request.Context(), strings.TrimSpace(data.Email), strings.TrimSpace(data.VerifyCode))
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrExpiredCode) {
			fail(c, http.StatusBadRequest, "Invalid or expired verification code")
			return
		}

		zap.L().Error("Failed to verify user", zap.Error(err), zap.String("requestID", requestID))
		fail(c, http.StatusInternalServerError, "Error verifying email")
		return
	}

	zap.L().Debug("User verified", zap.String("userID", res.Account.ID), zap.String("requestID", requestID))
	startSession(c, d, res.Token)
}

// startSession hands the token out as a cookie and as a header. The cookie
// lives exactly as long as the token
func startSession(c *gin.Context, d *internal.Deps, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, token, int(security.SessionTTL.Seconds()), "/", "", d.Config.Production(), true)
	c.Header("Authorization", "Bearer "+token)

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"message":   "Successful",
		"requestID": c.GetString("requestID"),
	})
}
