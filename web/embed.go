// Package web embeds the diagnostics dashboard. The embed lives next to the
// static/ directory because //go:embed paths cannot contain "..".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var embedded embed.FS

// StaticFiles is rooted at web/static/ and can be served with
// http.FileServer(http.FS(StaticFiles)).
var StaticFiles, _ = fs.Sub(embedded, "static")
