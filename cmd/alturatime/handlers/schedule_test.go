package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alturatime/backend/cmd/alturatime/service"
	"github.com/alturatime/backend/common/bootstrap"
	"github.com/alturatime/backend/common/config"
	"github.com/alturatime/backend/common/logger"
	"github.com/alturatime/backend/common/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "alturatime"},
		Upload: config.UploadConfig{
			MaxBytes:          2 * 1024 * 1024,
			AllowedExtensions: []string{".ics"},
		},
		Cache: config.CacheConfig{DefaultTTL: time.Minute},
	}
}

// newTestApp wires the handler into a bare echo instance backed by a
// temp-dir store.
func newTestApp(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()

	st, err := store.NewFSStore(t.TempDir(), cfg.Upload.MaxBytes)
	require.NoError(t, err)

	components := &bootstrap.Components{
		Config: cfg,
		Logger: logger.New("error", "text"),
		Store:  st,
	}
	h := NewScheduleHandler(components, service.NewScheduleService(st, nil, cfg, components.Logger))

	e := echo.New()
	e.HideBanner = true
	e.GET("/", h.Index)
	e.POST("/upload", h.Upload)
	e.GET("/i/:id", h.RawSchedule)
	e.GET("/meta/:id", h.Meta)
	e.GET("/s/:id", h.SharePage)
	e.GET("/status/:id", h.CallStatus)
	return e
}

// multipartBody builds an upload request body. A nil content skips the file
// part entirely.
func multipartBody(t *testing.T, name, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", name))
	if content != nil {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postUpload(e *echo.Echo, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const testCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VTIMEZONE\r\nTZID:America/New_York\r\nEND:VTIMEZONE\r\n" +
	"BEGIN:VEVENT\r\nUID:a@test\r\nSUMMARY:Algebra\r\n" +
	"DTSTART;TZID=America/New_York:20240115T100000\r\n" +
	"DTEND;TZID=America/New_York:20240115T110000\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"

func TestIndex(t *testing.T) {
	e := newTestApp(t, testConfig())

	rec := get(e, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","msg":"AlturaTime backend"}`, rec.Body.String())
}

func TestUploadAndFetchFlow(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, "Alice", "spring schedule.ics", []byte(testCalendar))
	rec := postUpload(e, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Name    string `json:"name"`
		Link    string `json:"link"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Regexp(t, "^[a-f0-9]{32}$", resp.ID)
	assert.Equal(t, "Alice", resp.Name)
	assert.Equal(t, "http://example.com/s/"+resp.ID, resp.Link, "link should fall back to the request host")

	// Raw calendar comes back byte for byte.
	raw := get(e, "/i/"+resp.ID)
	require.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, "text/calendar", raw.Header().Get(echo.HeaderContentType))
	assert.Equal(t, testCalendar, raw.Body.String())

	// Metadata keeps the original wire shape.
	meta := get(e, "/meta/"+resp.ID)
	require.Equal(t, http.StatusOK, meta.Code)
	assert.JSONEq(t, fmt.Sprintf(
		`{"id":%q,"name":"Alice","orig_name":"spring_schedule.ics"}`, resp.ID,
	), meta.Body.String())

	// Share page renders with the id and name injected.
	page := get(e, "/s/"+resp.ID)
	require.Equal(t, http.StatusOK, page.Code)
	html := page.Body.String()
	assert.Contains(t, html, "Schedule for: <strong>Alice</strong>")
	assert.Contains(t, html, `const fileId = "`+resp.ID+`";`)
	assert.Contains(t, html, `"orig_name"`)

	// Live status snapshot resolves the schedule timezone.
	status := get(e, "/status/"+resp.ID)
	require.Equal(t, http.StatusOK, status.Code)

	var snap service.StatusResponse
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &snap))
	assert.Equal(t, resp.ID, snap.ID)
	assert.Equal(t, "Alice", snap.Name)
	assert.Equal(t, "America/New_York", snap.Timezone)
	assert.Equal(t, 1, snap.Events)
	assert.Contains(t, []string{"CLASS IN SESSION", "GOOD TO CALL", "AVOID CALLING"}, snap.Status)
}

func TestUploadMissingFile(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, "Alice", "", nil)
	rec := postUpload(e, body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"No file provided"}`, rec.Body.String())
}

func TestUploadWrongExtension(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, "Alice", "notes.txt", []byte("hello"))
	rec := postUpload(e, body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Only .ics files allowed"}`, rec.Body.String())
}

func TestUploadEmptyFile(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, "Alice", "cal.ics", []byte{})
	rec := postUpload(e, body, ct)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Empty file"}`, rec.Body.String())
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxBytes = 64
	e := newTestApp(t, cfg)

	// Exactly at the ceiling passes.
	body, ct := multipartBody(t, "Alice", "cal.ics", bytes.Repeat([]byte("x"), 64))
	rec := postUpload(e, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	// One byte over is rejected.
	body, ct = multipartBody(t, "Alice", "cal.ics", bytes.Repeat([]byte("x"), 65))
	rec = postUpload(e, body, ct)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"File too large"}`, rec.Body.String())
}

func TestUploadErrorMapping(t *testing.T) {
	cfg := testConfig()
	st, err := store.NewFSStore(t.TempDir(), cfg.Upload.MaxBytes)
	require.NoError(t, err)
	components := &bootstrap.Components{Config: cfg, Logger: logger.New("error", "text"), Store: st}
	h := NewScheduleHandler(components, service.NewScheduleService(st, nil, cfg, components.Logger))

	e := echo.New()

	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{service.ErrNoFilename, http.StatusBadRequest, `{"success":false,"error":"No filename"}`},
		{service.ErrExtensionNotAllowed, http.StatusBadRequest, `{"success":false,"error":"Only .ics files allowed"}`},
		{store.ErrEmptyPayload, http.StatusBadRequest, `{"success":false,"error":"Empty file"}`},
		{store.ErrTooLarge, http.StatusRequestEntityTooLarge, `{"success":false,"error":"File too large"}`},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, `{"success":false,"error":"Failed to save: disk on fire"}`},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.uploadError(c, tt.err))
		assert.Equal(t, tt.wantCode, rec.Code, "error %v", tt.err)
		assert.JSONEq(t, tt.wantBody, rec.Body.String(), "error %v", tt.err)
	}
}

func TestLookupsUnknownID(t *testing.T) {
	e := newTestApp(t, testConfig())
	unknown := strings.Repeat("a", 32)

	for _, path := range []string{
		"/i/" + unknown,
		"/meta/" + unknown,
		"/s/" + unknown,
		"/status/" + unknown,
		"/i/not-an-id",
		"/meta/..%2Fsecret",
	} {
		rec := get(e, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
}

func TestStatusUnparseableCalendar(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, "Alice", "cal.ics", []byte("not a calendar at all"))
	rec := postUpload(e, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, "uploads are stored unvalidated")

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	status := get(e, "/status/"+resp.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, status.Code)
}

func TestSharePageEscapesName(t *testing.T) {
	e := newTestApp(t, testConfig())

	body, ct := multipartBody(t, `<script>alert(1)</script>`, "cal.ics", []byte(testCalendar))
	rec := postUpload(e, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	page := get(e, "/s/"+resp.ID)
	require.Equal(t, http.StatusOK, page.Code)
	html := page.Body.String()
	assert.NotContains(t, html, "<script>alert(1)</script>", "display name must never land unescaped")
	assert.Contains(t, html, "&lt;script&gt;")
}
