package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/internal/database"
	"homecare/internal/middleware"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Upload{}))

	dir := t.TempDir()
	return NewService(NewRepository(db), dir, "/uploads"), dir
}

func TestStore_AcceptsImage(t *testing.T) {
	svc, dir := newTestService(t)

	u, err := svc.store(context.Background(), "u1", "wound.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "image/png", u.MimeType)
	assert.Equal(t, "image", u.MessageType())
	assert.Equal(t, "wound.png", u.OriginalName)
	assert.EqualValues(t, len(pngHeader), u.Size)
	assert.Regexp(t, regexp.MustCompile(`^/uploads/\d{4}/\d{2}/[0-9a-f-]{36}\.png$`), u.FileURL)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(u.FilePath)))
	assert.NoError(t, err)
}

func TestStore_PlainTextIsFile(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.store(context.Background(), "u1", "notes.exe", bytes.NewReader([]byte("blood pressure 120/80\n")))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", u.MimeType)
	assert.Equal(t, "file", u.MessageType())
	assert.Equal(t, ".txt", filepath.Ext(u.FilePath))
}

func TestStore_RejectsDisallowedType(t *testing.T) {
	svc, dir := newTestService(t)

	_, err := svc.store(context.Background(), "u1", "page.txt", bytes.NewReader([]byte("<html><body>hi</body></html>")))
	assert.ErrorIs(t, err, ErrInvalidMimeType)

	_, err = svc.store(context.Background(), "u1", "archive.pdf", bytes.NewReader([]byte("PK\x03\x04\x14\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrInvalidMimeType)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestStore_RejectsOversize(t *testing.T) {
	svc, _ := newTestService(t)

	big := bytes.Repeat([]byte("a"), MaxFileSize+1)
	_, err := svc.store(context.Background(), "u1", "big.txt", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestDelete_OwnerOnly(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	u, err := svc.store(ctx, "u1", "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, u.ID, "u2"), ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, u.ID, "u1"))

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(u.FilePath)))
	assert.True(t, os.IsNotExist(err))
	_, err = svc.GetByID(ctx, u.ID, "u1")
	assert.ErrorIs(t, err, ErrUploadNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, u.ID, "u1"), ErrUploadNotFound)
}

func TestHandler_Upload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)

	router := gin.New()
	router.Use(func(c *gin.Context) { middleware.SetIdentity(c, "u1", "user") })
	RegisterRoutes(router.Group("/api/v1"), NewHandler(svc))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, _ = part.Write(pngHeader)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Success bool     `json:"success"`
		Data    Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "photo.png", resp.Data.FileName)
	assert.Equal(t, "image", resp.Data.MessageType)
	assert.Equal(t, "image/png", resp.Data.MimeType)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetByIDHidesOtherUsersUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	u, err := svc.store(context.Background(), "u1", "a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	get := func(userID string) int {
		router := gin.New()
		router.Use(func(c *gin.Context) { middleware.SetIdentity(c, userID, "user") })
		RegisterRoutes(router.Group("/api/v1"), NewHandler(svc))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+u.ID, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("u1"))
	assert.Equal(t, http.StatusForbidden, get("u2"))
}
