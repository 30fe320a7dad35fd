package middlewarectx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/films-api/internal/lib/httperr"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// FileStorage выгружает сохранённый файл и возвращает его публичный URL.
type FileStorage interface {
	UploadFile(ctx context.Context, fileName string) (string, error)
}

// Upload принимает файлы из multipart‑формы.
type Upload struct {
	log     *slog.Logger
	dir     string
	storage FileStorage
	errs    ErrorHandler
}

// NewUpload создаёт middleware приёма файлов, сохраняющее файлы в dir.
func NewUpload(log *slog.Logger, dir string, storage FileStorage, errs ErrorHandler) *Upload {
	return &Upload{
		log:     log,
		dir:     dir,
		storage: storage,
		errs:    errs,
	}
}

// SingleFileStore сохраняет файл из поля field на диск как <имя>-<uuid><расширение>.
// Запрос без файла проходит дальше без изменений.
func (u *Upload) SingleFileStore(field string, maxSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SingleFileStore"

			log := u.log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if mediaType != "multipart/form-data" {
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseMultipartForm(maxSize); err != nil {
				log.Info("failed to parse multipart form", sl.Err(err))
				u.errs.Handle(w, r, httperr.BadRequest("Invalid multipart form"))
				return
			}

			file, header, err := r.FormFile(field)
			if errors.Is(err, http.ErrMissingFile) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				u.errs.Handle(w, r, httperr.BadRequest("Invalid multipart form"))
				return
			}
			defer file.Close()

			if header.Size > maxSize {
				u.errs.Handle(w, r, httperr.BadRequest("File too large"))
				return
			}

			stored, err := u.store(file, header.Filename)
			if err != nil {
				u.errs.Handle(w, r, fmt.Errorf("%s: %w", op, err))
				return
			}
			stored.FieldName = field
			stored.Mimetype = header.Header.Get("Content-Type")
			stored.Size = header.Size

			log.Debug("file stored", slog.String("file", stored.FileName))
			next.ServeHTTP(w, r.WithContext(WithFile(r.Context(), stored)))
		})
	}
}

// SaveDataImage выгружает сохранённый файл в файловое хранилище и кладёт
// данные изображения в контекст. Без файла отвечает 400 "No file to upload".
func (u *Upload) SaveDataImage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stored, ok := FileFrom(r.Context())
		if !ok {
			u.errs.Handle(w, r, httperr.BadRequest("No file to upload"))
			return
		}

		url, err := u.storage.UploadFile(r.Context(), stored.FileName)
		if err != nil {
			u.errs.Handle(w, r, err)
			return
		}

		img := &models.Image{
			URLOriginal: stored.OriginalName,
			URL:         url,
			Mimetype:    stored.Mimetype,
			Size:        stored.Size,
		}
		next.ServeHTTP(w, r.WithContext(WithImage(r.Context(), img)))
	})
}

func (u *Upload) store(src io.Reader, originalName string) (*StoredFile, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return nil, err
	}

	ext := filepath.Ext(originalName)
	base := strings.TrimSuffix(filepath.Base(originalName), ext)
	name := base + "-" + uuid.NewString() + ext
	path := filepath.Join(u.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err = io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err = dst.Close(); err != nil {
		return nil, err
	}

	return &StoredFile{
		OriginalName: originalName,
		FileName:     name,
		Path:         path,
	}, nil
}
