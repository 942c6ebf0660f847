package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

func withCookie(req *http.Request, res *httptest.ResponseRecorder) *http.Request {
	for _, c := range res.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestUIIndexCreatesSessionCookie(t *testing.T) {
	ts := newTestServer(t, testRouterConfig())

	res := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("index expected 200, got %d", res.Code)
	}
	var found bool
	for _, c := range res.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s cookie", sessionCookie)
	}
	body := res.Body.String()
	if !strings.Contains(body, "Engineering Analysis AI") || !strings.Contains(body, string(domain.DomainElectronics)) {
		t.Fatalf("index page missing title or domain options")
	}
}

func TestUIShowsCredentialBanner(t *testing.T) {
	ts := newTestServer(t, testRouterConfig())
	ts.text.credErr = domain.ErrMissingCredential

	res := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(res.Body.String(), "Provider credentials missing") {
		t.Fatalf("expected credential banner")
	}
}

func TestUIOffersManualDescriptionUntilOneExists(t *testing.T) {
	ts := newTestServer(t, testRouterConfig())

	index := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(index.Body.String(), `action="/ui/manual"`) {
		t.Fatalf("expected manual description form on a fresh session")
	}

	req := withCookie(httptest.NewRequest(http.MethodPost, "/ui/manual", strings.NewReader("description=A+worm+gear+reducer")), index)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := ts.do(t, req)
	if res.Code != http.StatusOK {
		t.Fatalf("ui manual expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "A worm gear reducer") || !strings.Contains(body, `action="/ui/report"`) {
		t.Fatalf("expected description and report form")
	}
	if strings.Contains(body, `action="/ui/manual"`) {
		t.Fatalf("manual form should be hidden once a description exists")
	}
	if ts.vision.calls != 0 {
		t.Fatalf("vision provider must not be called for a manual description")
	}
}

func TestUIManualFallbackFlow(t *testing.T) {
	ts := newTestServer(t, testRouterConfig())
	ts.vision.result = domain.FailedVision(domain.NewFailure(domain.StageVision, domain.ErrUnexpectedFormat, "no generated text", nil))

	index := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	body, contentType := multipartBody(t, map[string]string{"domain": "Mechanical Mechanism"}, "gear.png", pngBytes(t))
	req := withCookie(httptest.NewRequest(http.MethodPost, "/ui/image", body), index)
	req.Header.Set("Content-Type", contentType)
	res := ts.do(t, req)
	if res.Code != http.StatusOK {
		t.Fatalf("ui image expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Describe the image manually") {
		t.Fatalf("expected manual description form after vision failure")
	}

	req = withCookie(httptest.NewRequest(http.MethodPost, "/ui/manual", strings.NewReader("description=A+planetary+gearbox")), index)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res = ts.do(t, req)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "A planetary gearbox") {
		t.Fatalf("expected manual description to be shown, got %d", res.Code)
	}

	req = withCookie(httptest.NewRequest(http.MethodPost, "/ui/report", strings.NewReader("domain=Mechanical+Mechanism&notes=")), index)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res = ts.do(t, req)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "/ui/download?format=txt") {
		t.Fatalf("expected report with download links, got %d", res.Code)
	}

	res = ts.do(t, withCookie(httptest.NewRequest(http.MethodGet, "/ui/download?format=txt", nil), index))
	if res.Code != http.StatusOK {
		t.Fatalf("download expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "engineering_analysis_Mechanical_Mechanism.txt") {
		t.Fatalf("unexpected download name %q", got)
	}
}

func TestUIManualRejectsEmptyDescription(t *testing.T) {
	ts := newTestServer(t, testRouterConfig())
	index := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

	req := withCookie(httptest.NewRequest(http.MethodPost, "/ui/manual", strings.NewReader("description=+++")), index)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := ts.do(t, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank description, got %d", res.Code)
	}
}
