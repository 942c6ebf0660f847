package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const multipartMemory = 8 << 20

type failureView struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type sessionView struct {
	ID                        string       `json:"id"`
	State                     string       `json:"state"`
	Domain                    string       `json:"domain,omitempty"`
	Notes                     string       `json:"notes,omitempty"`
	ImageFilename             string       `json:"image_filename,omitempty"`
	Description               string       `json:"description,omitempty"`
	DescriptionSource         string       `json:"description_source,omitempty"`
	ManualDescriptionRequired bool         `json:"manual_description_required"`
	Report                    string       `json:"report,omitempty"`
	Failure                   *failureView `json:"failure,omitempty"`
	ReportFormats             []string     `json:"report_formats,omitempty"`
	CreatedAt                 time.Time    `json:"created_at"`
	UpdatedAt                 time.Time    `json:"updated_at"`
}

func (rt *Router) viewOf(s *domain.Session) sessionView {
	view := sessionView{
		ID:                        s.ID,
		State:                     string(s.State),
		Domain:                    string(s.Domain),
		Notes:                     s.Notes,
		ManualDescriptionRequired: s.State == domain.StateAwaitingManualInput,
		CreatedAt:                 s.CreatedAt,
		UpdatedAt:                 s.UpdatedAt,
	}
	if s.Image != nil {
		view.ImageFilename = s.Image.Filename
	}
	if text, source, ok := s.Description(); ok {
		view.Description = text
		view.DescriptionSource = string(source)
	}
	if s.ReportReady() {
		view.Report = s.Analysis.Report
		view.ReportFormats = rt.exports.Formats()
	}
	if f := s.LastFailure; f != nil {
		view.Failure = &failureView{
			Stage:   string(f.Stage),
			Code:    f.Code(),
			Message: f.Message(),
			Reason:  f.Reason,
		}
	}
	return view
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	s, err := rt.sessions.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt.viewOf(s))
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := rt.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.viewOf(s))
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) attachImage(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	engineeringDomain, hasDomain := formValue(r, "domain")
	notes, hasNotes := formValue(r, "notes")

	s, err := rt.sessions.Update(r.Context(), r.PathValue("id"), func(s *domain.Session) error {
		if hasDomain || hasNotes {
			if !hasNotes {
				notes = s.Notes
			}
			if err := rt.analysis.SetInputs(s, engineeringDomain, notes); err != nil {
				return err
			}
		}
		return rt.analysis.AttachImage(s, *img)
	})
	rt.respondSession(w, r, s, err)
}

func (rt *Router) describe(w http.ResponseWriter, r *http.Request) {
	s, err := rt.sessions.Update(r.Context(), r.PathValue("id"), func(s *domain.Session) error {
		_, err := rt.analysis.Describe(r.Context(), s)
		return err
	})
	rt.respondSession(w, r, s, err)
}

func (rt *Router) submitManualDescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrValidation, "decode manual description", errors.New("invalid json")))
		return
	}

	s, err := rt.sessions.Update(r.Context(), r.PathValue("id"), func(s *domain.Session) error {
		return rt.analysis.SubmitManualDescription(s, req.Description)
	})
	rt.respondSession(w, r, s, err)
}

func (rt *Router) generateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain *string `json:"domain"`
		Notes  *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, domain.WrapError(domain.ErrValidation, "decode report request", errors.New("invalid json")))
		return
	}

	s, err := rt.sessions.Update(r.Context(), r.PathValue("id"), func(s *domain.Session) error {
		if req.Domain != nil || req.Notes != nil {
			engineeringDomain, notes := "", s.Notes
			if req.Domain != nil {
				engineeringDomain = *req.Domain
			}
			if req.Notes != nil {
				notes = *req.Notes
			}
			if err := rt.analysis.SetInputs(s, engineeringDomain, notes); err != nil {
				return err
			}
		}
		_, err := rt.analysis.GenerateReport(r.Context(), s)
		return err
	})
	rt.respondSession(w, r, s, err)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request) {
	s, err := rt.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.writeReportFile(w, r, s, r.URL.Query().Get("format"))
}

func (rt *Router) writeReportFile(w http.ResponseWriter, r *http.Request, s *domain.Session, format string) {
	doc, ok := domain.ReportDocumentFrom(s)
	if !ok {
		writeError(w, r, domain.WrapError(domain.ErrInvalidTransition, "download report", fmt.Errorf("session is %s, no report yet", s.State)))
		return
	}
	if strings.TrimSpace(format) == "" {
		format = "txt"
	}
	name, contentType, data, err := rt.exports.File(doc, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordReportExport(format)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, r, uploadError("parse analysis form", err))
		return
	}
	img, err := readImage(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	engineeringDomain, _ := formValue(r, "domain")
	notes, _ := formValue(r, "notes")
	description, _ := formValue(r, "description")

	s, err := rt.analysis.Analyze(r.Context(), domain.AnalyzeInput{
		Domain:            engineeringDomain,
		Notes:             notes,
		Image:             img,
		ManualDescription: description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.sessions.Save(r.Context(), s); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.viewOf(s))
}

// respondSession writes the session when the operation was accepted. Stage
// failures are part of the view, so only rejected requests become errors.
func (rt *Router) respondSession(w http.ResponseWriter, r *http.Request, s *domain.Session, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.viewOf(s))
}

// readImage returns the "image" part of a multipart form, or nil when it is
// optional and absent.
func readImage(r *http.Request, required bool) (*domain.ImageAsset, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, uploadError("parse image upload", err)
		}
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return nil, nil
		}
		return nil, uploadError("read image upload", fmt.Errorf("multipart field 'image' is required"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError("read image upload", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "read image upload", errors.New("image is empty"))
	}

	img := &domain.ImageAsset{Filename: header.Filename, Data: data}
	for _, hint := range []string{http.DetectContentType(data), header.Filename, header.Header.Get("Content-Type")} {
		if format, ok := domain.ImageFormatFromName(hint); ok {
			img.Format = format
			break
		}
	}
	return img, nil
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if values, ok := r.MultipartForm.Value[key]; ok && len(values) > 0 {
			return values[0], true
		}
		return "", false
	}
	if r.PostForm != nil {
		if values, ok := r.PostForm[key]; ok && len(values) > 0 {
			return values[0], true
		}
	}
	return "", false
}
