package internal

import (
	"plaksha/ocr-api/config"
	"plaksha/ocr-api/internal/service"

	"github.com/chenyahui/gin-cache/persist"
)

// Deps is everything the handlers need, built once in app.NewRouter
type Deps struct {
	Config       *config.Config
	Registration *service.Registration
	Verification *service.Verification
	Login        *service.Login
	Worker       service.ExtractionWorker
	Extractions  *service.Extractions
	Cache        persist.CacheStore
}
