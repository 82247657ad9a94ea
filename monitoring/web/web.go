// Package web includes the static page of the FIFO monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"

	"github.com/tliron/commonlog"
)

// AssetDirEnv names a directory that replaces the embedded page, so the
// page can be edited without rebuilding.
const AssetDirEnv = "GXFIFO_MONITOR_ASSETS"

//go:embed static
var staticAssets embed.FS

// GetAssets returns the static assets.
func GetAssets() http.FileSystem {
	if dir := os.Getenv(AssetDirEnv); dir != "" {
		commonlog.GetLogger("gxfifo.monitoring").
			Noticef("serving monitor assets from %s", dir)

		return http.Dir(dir)
	}

	static, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic(err)
	}

	return http.FS(static)
}
