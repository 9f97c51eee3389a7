package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"supportdesk/internal/config"
	"supportdesk/internal/models"
	"supportdesk/internal/service/agent"
	"supportdesk/internal/storage"
)

type mockResponder struct {
	reply string
	last  agent.Query
	calls int
}

func (m *mockResponder) SupportResponse(_ context.Context, q agent.Query) string {
	m.last = q
	m.calls++
	return m.reply
}

func newTestServer(t *testing.T) (*gin.Engine, *mockResponder, *Handler, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	mock := &mockResponder{reply: "restart the router"}
	handler := NewHandler(mock, storage.NewUploadStore(db), t.TempDir(), 24*time.Hour)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, mock, handler, db
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doUpload(t *testing.T, router *gin.Engine, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d, body: %s", rec.Code, rec.Body.String())
	}
}

func countUploads(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM uploads`).Scan(&count); err != nil {
		t.Fatalf("count uploads: %v", err)
	}
	return count
}

func TestHealth(t *testing.T) {
	router, _, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
		Version string `json:"version"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Status != "healthy" || body.Service == "" || body.Version == "" {
		t.Fatalf("unexpected health payload: %+v", body)
	}
}

func TestChatPlainMessage(t *testing.T) {
	router, mock, _, _ := newTestServer(t)
	rec := doJSONRequest(t, router, http.MethodPost, "/chat", map[string]string{
		"message": "my vpn keeps disconnecting",
	})
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Response string `json:"response"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Response != mock.reply {
		t.Fatalf("unexpected response: %q", body.Response)
	}
	if mock.last.Text != "my vpn keeps disconnecting" {
		t.Fatalf("message not forwarded, got %q", mock.last.Text)
	}
	if mock.last.ImageData != nil || mock.last.FileContent != "" {
		t.Fatalf("unexpected attachment inputs: %+v", mock.last)
	}
}

func TestChatInvalidBody(t *testing.T) {
	router, _, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestChatImageAttachment(t *testing.T) {
	router, mock, handler, _ := newTestServer(t)
	image := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	stored := "4ad1_screenshot.png"
	if err := os.WriteFile(filepath.Join(handler.uploadDir, stored), image, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rec := doJSONRequest(t, router, http.MethodPost, "/chat", map[string]any{
		"message":    "what is this error?",
		"attachment": map[string]any{"filename": stored},
	})
	assertStatus(t, rec, http.StatusOK)
	if !bytes.Equal(mock.last.ImageData, image) {
		t.Fatalf("image bytes not forwarded")
	}
	if mock.last.ImageMIMEType != "image/png" {
		t.Fatalf("unexpected mime type: %q", mock.last.ImageMIMEType)
	}
}

func TestChatTextAttachment(t *testing.T) {
	router, mock, handler, _ := newTestServer(t)
	content := "ERROR: disk quota exceeded\n"
	stored := "91fe_server.log"
	if err := os.WriteFile(filepath.Join(handler.uploadDir, stored), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rec := doJSONRequest(t, router, http.MethodPost, "/chat", map[string]any{
		"message":    "what went wrong?",
		"attachment": map[string]any{"filename": stored},
	})
	assertStatus(t, rec, http.StatusOK)
	if mock.last.FileContent != content {
		t.Fatalf("file content not forwarded, got %q", mock.last.FileContent)
	}
	if mock.last.ImageData != nil {
		t.Fatalf("text attachment should not produce image bytes")
	}
}

func TestChatScreenshotAttachmentIsLogged(t *testing.T) {
	router, mock, handler, _ := newTestServer(t)
	stored := "screenshot_20260829_120000_deadbeef.png"
	if err := os.WriteFile(filepath.Join(handler.uploadDir, stored), []byte{0x89, 'P', 'N', 'G'}, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	defer log.SetOutput(os.Stderr)

	rec := doJSONRequest(t, router, http.MethodPost, "/chat", map[string]any{
		"message":    "see the capture",
		"attachment": map[string]any{"filename": stored, "isScreenshot": true},
	})
	assertStatus(t, rec, http.StatusOK)
	if mock.last.ImageData == nil {
		t.Fatalf("screenshot bytes not forwarded")
	}
	if !strings.Contains(logBuf.String(), "processing screenshot: "+stored) {
		t.Fatalf("screenshot branch not logged, got: %s", logBuf.String())
	}
}

func TestChatVanishedAttachmentIsRecoverable(t *testing.T) {
	router, mock, _, _ := newTestServer(t)
	rec := doJSONRequest(t, router, http.MethodPost, "/chat", map[string]any{
		"message":    "help me",
		"attachment": map[string]any{"filename": "gone.png"},
	})
	assertStatus(t, rec, http.StatusOK)
	if mock.calls != 1 {
		t.Fatalf("responder should still be called")
	}
	if mock.last.ImageData != nil {
		t.Fatalf("missing file must not contribute inputs")
	}
}

func TestUploadTextFile(t *testing.T) {
	router, _, handler, db := newTestServer(t)
	rec := doUpload(t, router, "file", "report.txt", []byte("all systems nominal"))
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Success          bool   `json:"success"`
		Filename         string `json:"filename"`
		OriginalFilename string `json:"original_filename"`
		FileType         string `json:"file_type"`
		URL              string `json:"url"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !body.Success {
		t.Fatalf("expected success, body: %s", rec.Body.String())
	}
	if body.OriginalFilename != "report.txt" || body.FileType != "text" {
		t.Fatalf("unexpected metadata: %+v", body)
	}
	if !strings.HasSuffix(body.Filename, "_report.txt") || body.Filename == "_report.txt" {
		t.Fatalf("stored name missing unique prefix: %q", body.Filename)
	}
	if body.URL != "/static/uploads/"+body.Filename {
		t.Fatalf("unexpected url: %q", body.URL)
	}

	saved, err := os.ReadFile(filepath.Join(handler.uploadDir, body.Filename))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(saved) != "all systems nominal" {
		t.Fatalf("stored content mismatch: %q", saved)
	}
	if got := countUploads(t, db); got != 1 {
		t.Fatalf("expected 1 ledger row, got %d", got)
	}
}

func TestUploadImageExtensionCaseInsensitive(t *testing.T) {
	router, _, _, _ := newTestServer(t)
	rec := doUpload(t, router, "file", "photo.PNG", []byte{0x89, 'P', 'N', 'G'})
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		FileType string `json:"file_type"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.FileType != "image" {
		t.Fatalf("expected image classification, got %q", body.FileType)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	router, _, _, db := newTestServer(t)
	rec := doUpload(t, router, "file", "report.exe", []byte{0x4d, 0x5a})
	assertStatus(t, rec, http.StatusBadRequest)
	if got := countUploads(t, db); got != 0 {
		t.Fatalf("rejected upload must not be recorded, got %d rows", got)
	}
}

func TestUploadMissingFilePart(t *testing.T) {
	router, _, _, _ := newTestServer(t)
	rec := doUpload(t, router, "file", "", nil)
	assertStatus(t, rec, http.StatusBadRequest)
	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Error != "no file part" {
		t.Fatalf("unexpected error message: %q", body.Error)
	}
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	router, _, _, db := newTestServer(t)
	rec := doUpload(t, router, "file", "dump.log", bytes.Repeat([]byte{'x'}, 17<<20))
	assertStatus(t, rec, http.StatusBadRequest)
	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Error != "file too large" {
		t.Fatalf("unexpected error message: %q", body.Error)
	}
	if got := countUploads(t, db); got != 0 {
		t.Fatalf("rejected upload must not be recorded, got %d rows", got)
	}
}

func TestUploadScreenshotDataURL(t *testing.T) {
	router, _, handler, db := newTestServer(t)
	rec := doJSONRequest(t, router, http.MethodPost, "/upload-screenshot", map[string]string{
		"screenshot": "data:image/png;base64,AAAA",
	})
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Success  bool   `json:"success"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !body.Success {
		t.Fatalf("expected success, body: %s", rec.Body.String())
	}
	if !strings.HasPrefix(body.Filename, "screenshot_") || !strings.HasSuffix(body.Filename, ".png") {
		t.Fatalf("unexpected screenshot name: %q", body.Filename)
	}
	saved, err := os.ReadFile(filepath.Join(handler.uploadDir, body.Filename))
	if err != nil {
		t.Fatalf("screenshot not saved: %v", err)
	}
	// "AAAA" decodes to three zero bytes; only the substring after the
	// first comma is decoded.
	if !bytes.Equal(saved, []byte{0, 0, 0}) {
		t.Fatalf("unexpected decoded bytes: %v", saved)
	}
	if got := countUploads(t, db); got != 1 {
		t.Fatalf("expected 1 ledger row, got %d", got)
	}
}

func TestUploadScreenshotRawBase64(t *testing.T) {
	router, _, handler, _ := newTestServer(t)
	rec := doJSONRequest(t, router, http.MethodPost, "/upload-screenshot", map[string]string{
		"screenshot": "QUJD",
	})
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Filename string `json:"filename"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	saved, err := os.ReadFile(filepath.Join(handler.uploadDir, body.Filename))
	if err != nil {
		t.Fatalf("screenshot not saved: %v", err)
	}
	if string(saved) != "ABC" {
		t.Fatalf("unexpected decoded bytes: %q", saved)
	}
}

func TestUploadScreenshotInvalidPayload(t *testing.T) {
	router, _, _, _ := newTestServer(t)

	rec := doJSONRequest(t, router, http.MethodPost, "/upload-screenshot", map[string]string{})
	assertStatus(t, rec, http.StatusBadRequest)

	rec = doJSONRequest(t, router, http.MethodPost, "/upload-screenshot", map[string]string{
		"screenshot": "!!not-base64!!",
	})
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestCleanupRemovesOnlyExpiredFiles(t *testing.T) {
	router, _, handler, db := newTestServer(t)
	store := storage.NewUploadStore(db)

	oldPath := filepath.Join(handler.uploadDir, "old_dump.log")
	newPath := filepath.Join(handler.uploadDir, "new_dump.log")
	for _, path := range []string{oldPath, newPath} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		up := &models.Upload{
			StoredName:   filepath.Base(path),
			OriginalName: filepath.Base(path),
			MimeType:     "application/octet-stream",
			FileType:     models.FileTypeText,
			Size:         1,
			CreatedAt:    time.Now(),
		}
		if err := store.Record(context.Background(), up); err != nil {
			t.Fatalf("record fixture: %v", err)
		}
	}
	oldTime := time.Now().Add(-25 * time.Hour)
	newTime := time.Now().Add(-23 * time.Hour)
	if err := os.Chtimes(oldPath, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(newPath, newTime, newTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec := doJSONRequest(t, router, http.MethodPost, "/cleanup", nil)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !body.Success || body.Message == "" {
		t.Fatalf("unexpected cleanup payload: %s", rec.Body.String())
	}

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expired file should be removed")
	}
	if _, err := os.Stat(newPath); err != nil {
		t.Fatalf("fresh file should survive: %v", err)
	}
	if got := countUploads(t, db); got != 1 {
		t.Fatalf("expected expired ledger row pruned, got %d rows", got)
	}

	// A run with nothing to delete still reports success.
	rec = doJSONRequest(t, router, http.MethodPost, "/cleanup", nil)
	assertStatus(t, rec, http.StatusOK)
}
