// Package extraction contains the document upload and extraction record endpoints
package extraction

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"plaksha/ocr-api/internal"
	"plaksha/ocr-api/internal/service"
	"plaksha/ocr-api/pkg/middleware"
	"plaksha/ocr-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upload runs the OCR worker on the uploaded document and stores whatever it
// extracted as a new record
func Upload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.GetString("userID")

	fh, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			fail(c, http.StatusRequestEntityTooLarge, "Request body size exceeds limit")
			return
		}

		fail(c, http.StatusBadRequest, "Missing file or document type")
		return
	}

	documentType := strings.TrimSpace(c.PostForm("documentType"))
	if documentType == "" {
		fail(c, http.StatusBadRequest, "Missing file or document type")
		return
	}

	code, file, err := validators.FileValidator(fh, d.Config.Upload.MaxSize, d.Config.Upload.AllowedTypes)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to read uploaded file", zap.Error(err), zap.String("requestID", requestID))
			fail(c, code, "Internal server error")
			return
		}

		fail(c, code, err.Error())
		return
	}

	extracted, err := d.Worker.Run(c.Request.Context(), file.Data)
	if err != nil {
		status, msg := workerFailure(err)
		if status >= http.StatusInternalServerError {
			zap.L().Error("Extraction failed", zap.Error(err), zap.String("requestID", requestID), zap.String("userID", userID))
		}

		fail(c, status, msg)
		return
	}

	rec, err := d.Extractions.Save(c.Request.Context(), service.SaveParams{
		UserID:       userID,
		DocumentType: documentType,
		FileName:     file.Name,
		ContentType:  file.ContentType,
		Data:         file.Data,
		Extracted:    extracted,
	})
	if err != nil {
		zap.L().Error("Failed to save extraction record", zap.Error(err), zap.String("requestID", requestID))
		fail(c, http.StatusInternalServerError, "Failed to save extracted data")
		return
	}

	if d.Cache != nil {
		InvalidateList(d.Cache, userID)
	}

	c.JSON(http.StatusOK, rec)
}

func workerFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrWorkerBusy):
		return http.StatusServiceUnavailable, "All extraction workers are busy, try again later"
	case errors.Is(err, service.ErrWorkerTimeout):
		return http.StatusGatewayTimeout, "Extraction took too long"
	case errors.Is(err, service.ErrEmptyWorkerOutput), errors.Is(err, service.ErrMalformedWorkerOutput):
		return http.StatusInternalServerError, "Invalid JSON response from OCR script"
	case errors.Is(err, context.Canceled):
		// Client went away, nobody reads this
		return 499, "Request canceled"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"error":     msg,
		"requestID": c.GetString("requestID"),
	})
}
