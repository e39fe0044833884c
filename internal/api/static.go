package api

import (
	"io/fs"

	webpkg "github.com/hartyporpoise/hwrt/web"
)

// staticFiles holds the dashboard assets. index.html is served at / and
// everything else under /static/.
var staticFiles fs.FS = webpkg.StaticFiles
