// Package webui serves the development-only debug pages.
package webui

import (
	"net/http"

	"weekendest.com/stations/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
