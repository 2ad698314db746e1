package webui

import "navigator.metromap.org/internal/app"

// WebUI serves the read-only debug pages.
type WebUI struct {
	*app.Application
}

func NewWebUI(app *app.Application) *WebUI {
	return &WebUI{Application: app}
}
