package httpadapter

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const sessionCookie = "eaa_session"

//go:embed templates/index.html
var templateFS embed.FS

func parsePageTemplate() (*template.Template, error) {
	return template.New("index.html").Funcs(template.FuncMap{
		"isSelected": func(current string, d domain.EngineeringDomain) bool { return current == string(d) },
	}).ParseFS(templateFS, "templates/index.html")
}

type pageData struct {
	Domains           []domain.EngineeringDomain
	Session           sessionView
	CredentialWarning string
	Error             string
}

// uiSession returns the session named by the cookie, creating one when the
// cookie is missing or the session expired.
func (rt *Router) uiSession(w http.ResponseWriter, r *http.Request) (*domain.Session, error) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if s, err := rt.sessions.Get(r.Context(), cookie.Value); err == nil {
			return s, nil
		}
	}
	s, err := rt.sessions.Create(r.Context())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(rt.cfg.SessionTTL / time.Second),
	})
	return s, nil
}

func (rt *Router) renderPage(w http.ResponseWriter, r *http.Request, status int, s *domain.Session, actionErr error) {
	data := pageData{
		Domains: domain.Domains(),
	}
	if s != nil {
		data.Session = rt.viewOf(s)
	}
	if err := rt.analysis.CheckCredentials(); err != nil {
		data.CredentialWarning = err.Error()
	}
	if actionErr != nil {
		data.Error = actionErr.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rt.page.Execute(w, data); err != nil {
		slog.Error("ui_render_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func (rt *Router) uiIndex(w http.ResponseWriter, r *http.Request) {
	s, err := rt.uiSession(w, r)
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), nil, err)
		return
	}
	rt.renderPage(w, r, http.StatusOK, s, nil)
}

// uiImage stores the upload with the selected domain and notes, then asks the
// vision provider for a description right away.
func (rt *Router) uiImage(w http.ResponseWriter, r *http.Request) {
	s, err := rt.uiSession(w, r)
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), nil, err)
		return
	}
	img, err := readImage(r, true)
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), s, err)
		return
	}
	engineeringDomain, _ := formValue(r, "domain")
	notes, _ := formValue(r, "notes")

	updated, err := rt.sessions.Update(r.Context(), s.ID, func(s *domain.Session) error {
		if err := rt.analysis.SetInputs(s, engineeringDomain, notes); err != nil {
			return err
		}
		if err := rt.analysis.AttachImage(s, *img); err != nil {
			return err
		}
		_, err := rt.analysis.Describe(r.Context(), s)
		return err
	})
	rt.renderAction(w, r, s, updated, err)
}

func (rt *Router) uiManual(w http.ResponseWriter, r *http.Request) {
	s, err := rt.uiSession(w, r)
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), nil, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		rt.renderPage(w, r, http.StatusBadRequest, s, uploadError("parse form", err))
		return
	}
	description, _ := formValue(r, "description")

	updated, err := rt.sessions.Update(r.Context(), s.ID, func(s *domain.Session) error {
		return rt.analysis.SubmitManualDescription(s, description)
	})
	rt.renderAction(w, r, s, updated, err)
}

func (rt *Router) uiReport(w http.ResponseWriter, r *http.Request) {
	s, err := rt.uiSession(w, r)
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), nil, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		rt.renderPage(w, r, http.StatusBadRequest, s, uploadError("parse form", err))
		return
	}
	engineeringDomain, _ := formValue(r, "domain")
	notes, hasNotes := formValue(r, "notes")

	updated, err := rt.sessions.Update(r.Context(), s.ID, func(s *domain.Session) error {
		if !hasNotes {
			notes = s.Notes
		}
		if err := rt.analysis.SetInputs(s, engineeringDomain, notes); err != nil {
			return err
		}
		_, err := rt.analysis.GenerateReport(r.Context(), s)
		return err
	})
	rt.renderAction(w, r, s, updated, err)
}

func (rt *Router) uiDownload(w http.ResponseWriter, r *http.Request) {
	s, err := rt.uiSession(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.writeReportFile(w, r, s, r.URL.Query().Get("format"))
}

func (rt *Router) renderAction(w http.ResponseWriter, r *http.Request, before, after *domain.Session, err error) {
	if after == nil {
		after = before
	}
	if err != nil {
		rt.renderPage(w, r, mapErrorToHTTPStatus(err), after, err)
		return
	}
	rt.renderPage(w, r, http.StatusOK, after, nil)
}
