package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/films-api/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// Payload — ключ для данных проверенного токена
	Payload Key = "token_payload"
	// File — ключ для файла, сохранённого на диск
	File Key = "file"
	// Image — ключ для данных загруженного изображения
	Image Key = "image"
)

// WithPayload кладёт данные токена в контекст.
func WithPayload(ctx context.Context, p *models.TokenPayload) context.Context {
	return context.WithValue(ctx, Payload, p)
}

// PayloadFrom достаёт данные токена из контекста.
func PayloadFrom(ctx context.Context) (*models.TokenPayload, bool) {
	p, ok := ctx.Value(Payload).(*models.TokenPayload)
	return p, ok && p != nil
}

// WithImage кладёт данные изображения в контекст.
func WithImage(ctx context.Context, img *models.Image) context.Context {
	return context.WithValue(ctx, Image, img)
}

// ImageFrom достаёт данные изображения из контекста.
func ImageFrom(ctx context.Context) (*models.Image, bool) {
	img, ok := ctx.Value(Image).(*models.Image)
	return img, ok && img != nil
}

// StoredFile — файл из multipart‑формы, сохранённый на диск.
type StoredFile struct {
	FieldName    string
	OriginalName string
	FileName     string
	Path         string
	Mimetype     string
	Size         int64
}

// WithFile кладёт сохранённый файл в контекст.
func WithFile(ctx context.Context, f *StoredFile) context.Context {
	return context.WithValue(ctx, File, f)
}

// FileFrom достаёт сохранённый файл из контекста.
func FileFrom(ctx context.Context) (*StoredFile, bool) {
	f, ok := ctx.Value(File).(*StoredFile)
	return f, ok && f != nil
}
