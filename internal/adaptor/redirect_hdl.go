package adaptor

import (
	"html/template"
	"net/http"

	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

// RedirectHandler serves the landing page that email links point at. It
// forwards the token into the mobile app's deep link and falls back to the
// web frontend when the app is not installed.
type RedirectHandler struct {
	config *utils.Config
	log    *zap.Logger
	tmpl   *template.Template
}

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Opening MyCabinet…</title>
<style>
body { font-family: -apple-system, sans-serif; text-align: center; padding: 4rem 1rem; }
a { color: #2a6f4e; }
</style>
</head>
<body>
<h1>Opening MyCabinet…</h1>
<p>If nothing happens, <a id="fallback" href="{{.Fallback}}">continue in your browser</a>.</p>
<script>
(function () {
	var deepLink = {{.DeepLink}};
	if (deepLink) {
		window.location.href = deepLink;
	}
	setTimeout(function () {
		window.location.href = {{.Fallback}};
	}, 1500);
})();
</script>
</body>
</html>
`))

func NewRedirectHandler(config *utils.Config, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		config: config,
		log:    log,
		tmpl:   redirectPage,
	}
}

// Serve handles GET /r?type=...&token=...
func (h *RedirectHandler) Serve(w http.ResponseWriter, r *http.Request) {
	linkType := r.URL.Query().Get("type")
	token := r.URL.Query().Get("token")

	deepLink := ""
	fallback := h.config.App.FrontendURL
	if token != "" && linkType != "" {
		// The raw token rides along untouched; validation happens only when
		// the client posts it back.
		params := "?type=" + template.URLQueryEscaper(linkType) + "&token=" + template.URLQueryEscaper(token)
		deepLink = "mycabinet://auth" + params
		fallback = h.config.App.FrontendURL + "/auth" + params
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	data := struct {
		DeepLink string
		Fallback string
	}{DeepLink: deepLink, Fallback: fallback}

	if err := h.tmpl.Execute(w, data); err != nil {
		h.log.Error("Failed to render redirect page", zap.Error(err))
	}
}
