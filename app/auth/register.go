// Package auth contains the account registration and verification endpoints
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

type registerBody struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func Register(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		fail(c, http.StatusBadRequest, validators.BindingMessage(err))
		return
	}

	data.Email = strings.TrimSpace(data.Email)

	if err := validators.EmailValidator(data.Email); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := d.Registration.Register(c.Request.Context(), service.RegisterParams{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Password:  data.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyRegistered):
			fail(c, http.StatusBadRequest, "User already exists")
		case errors.Is(err, service.ErrNotificationFailed):
			zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("requestID", requestID))
			fail(c, http.StatusInternalServerError, "Failed to send verification email")
		default:
			zap.L().Error("Failed to register user", zap.Error(err), zap.String("requestID", requestID))
			fail(c, http.StatusInternalServerError, "Error registering user")
		}
		return
	}

	if res.Created {
		c.JSON(http.StatusCreated, gin.H{
			"success":   true,
			"message":   "User registered successfully. Please verify your email.",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Verification code resent. Please check your email.",
		"requestID": requestID,
	})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"success":   false,
		"message":   msg,
		"requestID": c.GetString("requestID"),
	})
}
