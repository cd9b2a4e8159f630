package server

import (
	"bytes"
	"context"
	"embed"
	stderrors "errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/buildconfig"
	"github.com/nasa-meteo/dashboard/pkg/navigation"
)

//go:embed assets
var assets embed.FS

var (
	shellTmpl = template.Must(template.ParseFS(assets, "assets/shell.html"))
	errorTmpl = template.Must(template.ParseFS(assets, "assets/error.html"))
)

// shellData is rendered by assets/shell.html.
type shellData struct {
	Title         string
	Route         string
	Transition    string
	CesiumBaseURL string
	Boot          bootData
	Body          template.HTML
	ClientPath    string
}

// bootData is handed to the client script as window.__METEO__.
type bootData struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Route      string         `json:"route"`
	Title      string         `json:"title"`
	Transition string         `json:"transition,omitempty"`
	LivePath   string         `json:"livePath"`
	Define     map[string]any `json:"define"`
}

type errorData struct {
	Title      string
	Status     int
	StatusText string
	Message    string
	Code       string
}

// requestPath is the path navigated for r, query included.
func requestPath(r *http.Request) string {
	p := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		p += "?" + r.URL.RawQuery
	}
	return p
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	path := requestPath(r)

	target, err := s.nav.Follow(path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if target.Redirects > 0 {
		http.Redirect(w, r, target.Resolution.FullPath(), http.StatusFound)
		return
	}

	res, err := s.nav.NewContext(nil).Navigate(r.Context(), path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.renderShell(res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = page.WriteTo(w)
}

func (s *Server) renderShell(res *navigation.Result) (*bytes.Buffer, error) {
	var body bytes.Buffer
	if err := res.Render(&body, s.defines); err != nil {
		return nil, err
	}

	base, _ := s.defines[buildconfig.CesiumBaseURL].(string)
	data := shellData{
		Title:         res.Title,
		Route:         res.Route.Key(),
		Transition:    res.Transition,
		CesiumBaseURL: base,
		Boot: bootData{
			ID:         res.ID,
			Path:       res.FullPath(),
			Route:      res.Route.Key(),
			Title:      res.Title,
			Transition: res.Transition,
			LivePath:   LivePath,
			Define:     s.defines,
		},
		// Views are html/template output and already escaped.
		Body:       template.HTML(body.String()),
		ClientPath: ClientPath,
	}

	var page bytes.Buffer
	if err := shellTmpl.Execute(&page, data); err != nil {
		return nil, errors.New("E152").WithDetail("document shell").Wrap(err)
	}
	return &page, nil
}

// statusFor maps a navigation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.HasCode(err, "E151"):
		return http.StatusBadGateway
	case errors.HasCode(err, "E109"):
		return http.StatusLoopDetected
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away.
		return
	}

	status := statusFor(err)
	s.logger.Warn("page failed",
		"path", r.URL.Path,
		"status", status,
		"error", err)

	data := errorData{
		Title:      navigation.FallbackTitle,
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    publicMessage(err),
		Code:       errors.CodeOf(err),
	}

	var buf bytes.Buffer
	if tmplErr := errorTmpl.Execute(&buf, data); tmplErr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// publicMessage is the part of err safe to show to visitors: the message of
// a coded error, never wrapped causes.
func publicMessage(err error) string {
	var me *errors.MeteoError
	if stderrors.As(err, &me) && me.Message != "" {
		return me.Message
	}
	return strings.TrimSpace(http.StatusText(statusFor(err)))
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	data, err := assets.ReadFile("assets/client.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
