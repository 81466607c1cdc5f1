package extraction

import (
	"net/http"
	"strconv"
	"time"

	"plaksha/ocr-api/internal"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Has to outlive every cached page, otherwise an expired generation falls
// back to zero while pages cached under zero are still around
const listGenerationTTL = time.Hour

func listGenerationKey(userID string) string {
	return "extraction:gen:" + userID
}

// ListCacheKey keys cached list responses per user so one user's records are
// never served to another. The key carries the user's current list
// generation, so bumping it with InvalidateList retires every cached page
// and query string at once
func ListCacheKey(store persist.CacheStore, userID, requestURI string) string {
	var gen int64
	// A miss leaves the generation at zero
	_ = store.Get(listGenerationKey(userID), &gen)

	return "extraction:" + userID + ":" + strconv.FormatInt(gen, 10) + ":" + requestURI
}

// InvalidateList makes every cached list page of userID unreachable. Old
// entries stay in the store until their own TTL runs out
func InvalidateList(store persist.CacheStore, userID string) {
	if err := store.Set(listGenerationKey(userID), time.Now().UnixNano(), listGenerationTTL); err != nil {
		zap.L().Warn("Failed to invalidate cached extraction lists", zap.String("userID", userID), zap.Error(err))
	}
}

// List returns the caller's records, newest first
func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		fail(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		fail(c, http.StatusBadRequest, "Invalid offset")
		return
	}

	recs, err := d.Extractions.List(c.Request.Context(), c.GetString("userID"), limit, offset)
	if err != nil {
		zap.L().Error("Failed to list extraction records", zap.Error(err), zap.String("requestID", requestID))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": recs,
		"limit":   limit,
		"offset":  offset,
	})
}
