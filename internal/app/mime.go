package app

import (
	"log/slog"
	"mime"
	"sync"
)

// assetTypes covers every extension under web/static. Slim container images
// have no system MIME table, so the file server would guess from content.
var assetTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".js":  "text/javascript; charset=utf-8",
	".svg": "image/svg+xml",
}

var assetTypesOnce sync.Once

// registerAssetTypes fills gaps in the process MIME table once; types the
// host already maps are left alone.
func registerAssetTypes(logger *slog.Logger) {
	assetTypesOnce.Do(func() {
		for ext, typ := range assetTypes {
			if mime.TypeByExtension(ext) != "" {
				continue
			}
			if err := mime.AddExtensionType(ext, typ); err != nil {
				logger.Warn("static asset type not registered", slog.String("ext", ext), slog.Any("error", err))
			}
		}
	})
}
