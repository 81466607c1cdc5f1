package extraction

import (
	"errors"
	"net/http"

	"plaksha/ocr-api/internal"
	"plaksha/ocr-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	rec, err := d.Extractions.Get(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, "Record not found")
			return
		}

		zap.L().Error("Failed to fetch extraction record", zap.Error(err), zap.String("requestID", requestID))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, rec)
}
