// Package storagetest поднимает PostgreSQL в контейнере для интеграционных тестов
// и заполняет его тестовыми данными.
package storagetest

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/films-api/internal/migrations"
	"github.com/magabrotheeeer/films-api/internal/storage"
)

// MigrationsPath возвращает абсолютный путь к каталогу migrations в корне модуля.
func MigrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// StartPostgres запускает контейнер и возвращает строку подключения.
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("films"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// New поднимает базу, применяет миграции и возвращает Storage.
func New(t *testing.T) *storage.Storage {
	t.Helper()

	s, err := storage.New(context.Background(), StartPostgres(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, migrations.Run(s.DB.DB, MigrationsPath(t)))
	return s
}

// Factory создаёт тестовые записи напрямую в базе.
type Factory struct {
	s *storage.Storage
}

// NewFactory создаёт фабрику тестовых данных.
func NewFactory(s *storage.Storage) *Factory {
	return &Factory{s: s}
}

// CreateUser создаёт пользователя и возвращает его id.
func (f *Factory) CreateUser(t *testing.T, userName string) string {
	t.Helper()
	var id string
	err := f.s.DB.QueryRow(`INSERT INTO users (user_name, password) VALUES ($1, 'hash') RETURNING id`, userName).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateFilm создаёт фильм и возвращает его id.
func (f *Factory) CreateFilm(t *testing.T, ownerID, title, genre string) string {
	t.Helper()
	var id string
	err := f.s.DB.QueryRow(`INSERT INTO films (title, genre, owner) VALUES ($1, $2, $3) RETURNING id`,
		title, genre, ownerID).Scan(&id)
	require.NoError(t, err)
	return id
}
