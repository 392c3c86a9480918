package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	MaxFileSize    = 10 << 20
	UploadsBaseDir = "./uploads"
	StaticURLBase  = "/uploads"
)

// allowedTypes maps each accepted MIME type to the extension stored on disk.
// Detection reads the content, the client's extension is ignored.
var allowedTypes = []struct {
	mime string
	ext  string
}{
	{"image/jpeg", ".jpg"},
	{"image/png", ".png"},
	{"image/gif", ".gif"},
	{"image/webp", ".webp"},
	{"audio/webm", ".webm"},
	{"audio/ogg", ".ogg"},
	{"application/ogg", ".ogg"},
	{"audio/mpeg", ".mp3"},
	{"audio/mp4", ".m4a"},
	{"audio/x-m4a", ".m4a"},
	{"audio/wav", ".wav"},
	{"audio/aac", ".aac"},
	{"application/pdf", ".pdf"},
	{"text/plain", ".txt"},
	{"application/msword", ".doc"},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
}

func classify(mt *mimetype.MIME) (mimeType, ext string, ok bool) {
	for _, a := range allowedTypes {
		if mt.Is(a.mime) {
			return a.mime, a.ext, true
		}
	}
	return "", "", false
}

func messageTypeFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "audio/"), mimeType == "application/ogg":
		return "voice"
	default:
		return "file"
	}
}

type Service struct {
	repo       Repository
	baseDir    string
	staticBase string
}

func NewService(repo Repository, baseDir, staticBase string) *Service {
	if baseDir == "" {
		baseDir = UploadsBaseDir
	}
	if staticBase == "" {
		staticBase = StaticURLBase
	}
	return &Service{repo: repo, baseDir: baseDir, staticBase: strings.TrimRight(staticBase, "/")}
}

// Upload checks size and content type, writes the file under a random name
// and records it.
func (s *Service) Upload(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (*Upload, error) {
	if fileHeader.Size == 0 {
		return nil, ErrEmptyFile
	}
	if fileHeader.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	return s.store(ctx, userID, fileHeader.Filename, file)
}

func (s *Service) store(ctx context.Context, userID, originalName string, file io.ReadSeeker) (*Upload, error) {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	mimeType, ext, ok := classify(detected)
	if !ok {
		return nil, ErrInvalidMimeType
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	now := time.Now().UTC()
	relDir := fmt.Sprintf("%d/%02d", now.Year(), now.Month())
	absDir := filepath.Join(s.baseDir, filepath.FromSlash(relDir))
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	id := uuid.NewString()
	filename := id + ext
	absPath := filepath.Join(absDir, filename)

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(dst, io.LimitReader(file, MaxFileSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > MaxFileSize {
		_ = os.Remove(absPath)
		return nil, ErrFileTooLarge
	}
	if written == 0 {
		_ = os.Remove(absPath)
		return nil, ErrEmptyFile
	}

	relPath := path.Join(relDir, filename)
	u := &Upload{
		ID:           id,
		UserID:       userID,
		OriginalName: filepath.Base(originalName),
		FilePath:     relPath,
		FileURL:      s.staticBase + "/" + relPath,
		MimeType:     mimeType,
		Size:         written,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("save upload record: %w", err)
	}
	return u, nil
}

// GetByID returns the upload when userID is its uploader.
func (s *Service) GetByID(ctx context.Context, id, userID string) (*Upload, error) {
	return s.repo.FindOwned(ctx, id, userID)
}

// Delete removes the record and then its file. Only the uploader may delete.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	u, err := s.repo.DeleteOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	// the file may already be gone
	_ = os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(u.FilePath)))
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Upload, error) {
	return s.repo.ListOwned(ctx, userID)
}
