// Package web bundles the dashboard templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

// Templates embeds the layouts, partials and pages.
//
//go:embed templates/*/*.html
var Templates embed.FS

//go:embed static/css/*.css static/js/*.js
var static embed.FS

// StaticFS returns the assets rooted at static/, ready for http.FS.
func StaticFS() (fs.FS, error) {
	return fs.Sub(static, "static")
}
