package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cv-generator/internal/parsing"
	"github.com/jonathan/cv-generator/internal/rendering"
	"github.com/jonathan/cv-generator/internal/server/ratelimit"
	"github.com/jonathan/cv-generator/internal/service"
	"github.com/jonathan/cv-generator/internal/storage"
	"github.com/jonathan/cv-generator/internal/testutil"
	"github.com/jonathan/cv-generator/internal/types"
)

// stubRasterizer returns a fixed PDF for print markup
type stubRasterizer struct{}

func (stubRasterizer) Mode() rendering.Mode { return rendering.ModePrint }

func (stubRasterizer) Rasterize(_ context.Context, markup string) ([]byte, error) {
	if !strings.Contains(markup, "@page") {
		return nil, &rendering.RasterizationError{Message: "expected print markup"}
	}
	return []byte("%PDF-1.4 stub"), nil
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *Server {
	t.Helper()
	backend, err := storage.NewFSBackend(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	engine, err := rendering.NewTemplateEngine("")
	require.NoError(t, err)

	svc := service.New(storage.New(backend), rendering.NewCoordinator(engine, stubRasterizer{}))
	s := New(Config{Port: 0, Version: "test", RateLimit: rl, Logger: zerolog.Nop()}, svc)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func formBody(shape parsing.Shape) string {
	return parsing.Export(testutil.ValidCVData(), shape).Encode()
}

// submit posts a valid form and returns the new id
func submit(t *testing.T, s *Server) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(formBody(parsing.ShapeDynamic)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	w := do(t, s, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.CVID
}

// TestHealthEndpoint tests the /health endpoint
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("expected version 'test', got '%s'", resp["version"])
	}
}

func TestGenerate_RedirectsBrowser(t *testing.T) {
	for _, shape := range []parsing.Shape{parsing.ShapeLegacy, parsing.ShapeDynamic} {
		t.Run(shape.String(), func(t *testing.T) {
			s := newTestServer(t, nil)

			req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(formBody(shape)))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := do(t, s, req)

			require.Equal(t, http.StatusFound, w.Code, w.Body.String())
			location := w.Header().Get("Location")
			assert.True(t, strings.HasPrefix(location, "/cv/"))
			assert.True(t, storage.ValidID(strings.TrimPrefix(location, "/cv/")))
		})
	}
}

func TestGenerate_JSONBody(t *testing.T) {
	s := newTestServer(t, nil)

	fields, err := json.Marshal(parsing.Export(testutil.ValidCVData(), parsing.ShapeLegacy).Fields())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader(fields))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	w := do(t, s, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/cv/"+resp.CVID, resp.RedirectURL)
	assert.Equal(t, resp.RedirectURL, w.Header().Get("Location"))
}

func TestGenerate_Multipart(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range parsing.Export(testutil.ValidCVData(), parsing.ShapeLegacy).Fields() {
		require.NoError(t, mw.WriteField(f.Name, f.Value))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/generate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(t, s, req)

	assert.Equal(t, http.StatusFound, w.Code, w.Body.String())
}

func TestGenerate_ValidationFailure(t *testing.T) {
	s := newTestServer(t, nil)

	form := parsing.Export(testutil.ValidCVData(), parsing.ShapeDynamic)
	form.Set("email", "not-an-email")

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, s, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var resp errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.NotEmpty(t, resp.Violations)
}

func TestGenerate_BadBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", "application/json", `{"full_name": `},
		{"bad escape", "application/x-www-form-urlencoded", "full_name=%zz"},
		{"unsupported type", "application/xml", "<cv/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := do(t, s, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDisplayPage(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Jane A. Doe")
	assert.Contains(t, w.Body.String(), rendering.PDFHref(id))
}

func TestMarkupModes(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	tests := []struct {
		query       string
		contentType string
		contains    string
	}{
		{"", "text/html; charset=utf-8", "Jane A. Doe"},
		{"?mode=print", "text/html; charset=utf-8", "@page"},
		{"?mode=latex", "application/x-tex; charset=utf-8", `\documentclass`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id+"/html"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id+"/html?mode=braille", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownDocument(t *testing.T) {
	s := newTestServer(t, nil)
	missing := "00000000-0000-4000-8000-000000000000"

	for _, path := range []string{"/cv/" + missing, "/cv/" + missing + "/pdf", "/api/v1/cv/" + missing, "/cv/not-a-uuid", "/cv/" + missing + "/edit"} {
		w := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status 404, got %d", path, w.Code)
		}
	}
}

func TestPDFDownload(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id+"/pdf", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=jane_a_doe.pdf`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 stub", w.Body.String())
}

func TestPreviewPDF(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/preview/pdf", strings.NewReader(formBody(parsing.ShapeLegacy)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "%PDF-1.4 stub", w.Body.String())

	list := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cvs", nil))
	var resp ListResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total, "preview must not store a document")
}

func TestUpdateForm_RedirectsToDisplay(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	form := parsing.Export(testutil.ValidCVData(), parsing.ShapeDynamic)
	form.Set("full_name", "Janet Doe")

	req := httptest.NewRequest(http.MethodPost, "/cv/"+id, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := do(t, s, req)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/cv/"+id, w.Header().Get("Location"))

	page := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id, nil))
	assert.Contains(t, page.Body.String(), "Janet Doe")
	assert.NotContains(t, page.Body.String(), "Jane A. Doe")
}

// formFields collects the inputs of the first form on page the way a browser
// would submit them
func formFields(t *testing.T, page string) (string, url.Values) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	form := doc.Find("form").First()
	action, ok := form.Attr("action")
	require.True(t, ok, "form has no action")

	values := url.Values{}
	form.Find("input[name], textarea[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		if goquery.NodeName(sel) == "textarea" {
			values.Add(name, sel.Text())
			return
		}
		v, _ := sel.Attr("value")
		values.Add(name, v)
	})
	return action, values
}

func TestHomePage(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	action, values := formFields(t, w.Body.String())
	assert.Equal(t, "/generate", action)
	for _, name := range []string{"full_name", "summary", "edu_5_cgpa", "intern_3_point_5", "proj_1_repo_link", "por_2_club", "extracur_5_desc", "techskill_10"} {
		assert.Contains(t, values, name)
	}
	assert.Empty(t, values.Get("full_name"))

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSampleFormPage_Submits(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, w.Code)
	action, values := formFields(t, w.Body.String())
	assert.Equal(t, "Aarav Sharma", values.Get("full_name"))
	assert.NotEmpty(t, values.Get("summary"))

	req := httptest.NewRequest(http.MethodPost, action, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = do(t, s, req)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())

	page := do(t, s, httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Aarav Sharma")
}

func TestEditPage_RoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/"+id+"/edit", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `href="/cv/`+id+`"`)

	action, values := formFields(t, w.Body.String())
	assert.Equal(t, "/cv/"+id, action)
	assert.Equal(t, "Jane A. Doe", values.Get("full_name"))
	assert.Equal(t, "Acme Corp", values.Get("intern_1_company"))
	assert.Equal(t, "Cut p99 latency by 30%", values.Get("intern_1_point_2"))
	assert.Equal(t, "Docker", values.Get("techskill_3"))

	values.Set("city", "Mumbai")
	req := httptest.NewRequest(http.MethodPost, action, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = do(t, s, req)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	api := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cv/"+id, nil))
	require.Equal(t, http.StatusOK, api.Code)
	var doc types.CVDocument
	require.NoError(t, json.Unmarshal(api.Body.Bytes(), &doc))
	want := testutil.ValidCVData()
	want.PersonalInfo.City = "Mumbai"
	assert.Equal(t, *want, doc.Data, "every field survives the edit page")
}

func TestAPI_CRUD(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cv/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var doc types.CVDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, id, doc.Metadata.CVID)
	assert.Equal(t, "Jane A. Doe", doc.Data.PersonalInfo.FullName)

	form := parsing.Export(testutil.ValidCVData(), parsing.ShapeLegacy)
	form.Set("city", "Mumbai")
	fields, err := json.Marshal(form.Fields())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/cv/"+id, bytes.NewReader(fields))
	req.Header.Set("Content-Type", "application/json")
	w = do(t, s, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Mumbai", doc.Data.PersonalInfo.City)
	assert.True(t, !doc.Metadata.LastModified.Before(doc.Metadata.CreatedAt))

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cvs", nil))
	var list ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, id, list.CVs[0].CVID)

	w = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/v1/cv/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Contains(t, msg["message"], id)

	w = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/v1/cv/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_EmptyListIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cvs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cvs":[],"total":0}`, w.Body.String())
}

func TestAPI_ExportForm(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	for _, shape := range []parsing.Shape{parsing.ShapeLegacy, parsing.ShapeDynamic} {
		t.Run(shape.String(), func(t *testing.T) {
			w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cv/"+id+"/form?shape="+shape.String(), nil))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp FormResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, shape.String(), resp.Shape)

			data, err := parsing.Normalize(parsing.FromFields(resp.Fields))
			require.NoError(t, err)
			assert.Equal(t, *testutil.ValidCVData(), *data)
		})
	}

	w := do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/cv/"+id+"/form?shape=yaml", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestCORSMiddleware tests CORS headers are set
func TestCORSMiddleware(t *testing.T) {
	s := newTestServer(t, nil)

	handler := s.withCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header Access-Control-Allow-Origin: *")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected CORS header Access-Control-Allow-Methods")
	}
}

// TestCORSMiddleware_OPTIONS tests OPTIONS preflight request
func TestCORSMiddleware_OPTIONS(t *testing.T) {
	s := newTestServer(t, nil)

	handler := s.withCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("should not reach here")) //nolint:errcheck
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/test", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204 for OPTIONS, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Error("OPTIONS response should have empty body")
	}
}

// TestLoggingMiddleware tests that logging middleware passes through and logs the status
func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{logger: zerolog.New(&buf)}

	handler := s.withLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", w.Code)
	}
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "/test", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	s := &Server{logger: zerolog.Nop()}

	handler := s.withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit_PDFEndpointSharesBucket(t *testing.T) {
	s := newTestServer(t, &ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/cv/{id}/pdf", Method: http.MethodGet, Limit: 1, Window: time.Hour, Burst: 1},
		},
	})

	first := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/00000000-0000-4000-8000-000000000001/pdf", nil))
	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := do(t, s, httptest.NewRequest(http.MethodGet, "/cv/00000000-0000-4000-8000-000000000002/pdf", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limit_exceeded", resp["error"])

	health := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestClientID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	assert.Equal(t, "10.1.2.3", clientID(req))

	req.RemoteAddr = "unix"
	assert.Equal(t, "unix", clientID(req))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/health")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
