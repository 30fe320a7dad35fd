// Package events публикует события жизненного цикла фильмов в RabbitMQ.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/films-api/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/films-api/internal/lib/sl"
	"github.com/magabrotheeeer/films-api/internal/models"
)

// Типы событий, они же ключи маршрутизации.
const (
	FilmCreated   = "film.created"
	FilmDeleted   = "film.deleted"
	FilmCommented = "film.commented"
)

// Event — сообщение о событии фильма.
type Event struct {
	Type       string    `json:"type"`
	FilmID     string    `json:"filmId"`
	OwnerID    string    `json:"ownerId"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewFilmEvent собирает событие по фильму и пользователю, который его вызвал.
func NewFilmEvent(eventType string, film models.Film, userID string) Event {
	return Event{
		Type:       eventType,
		FilmID:     film.ID,
		OwnerID:    film.Owner.ID,
		UserID:     userID,
		Title:      film.Title,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher публикует события. Ошибки только логируются: событие не
// влияет на ответ клиенту.
type Publisher struct {
	log      *slog.Logger
	ch       rabbitmq.Channel
	exchange string
}

// NewPublisher создаёт Publisher. При ch == nil события только логируются.
func NewPublisher(log *slog.Logger, ch rabbitmq.Channel, exchange string) *Publisher {
	return &Publisher{
		log:      log,
		ch:       ch,
		exchange: exchange,
	}
}

// Publish отправляет событие с ключом маршрутизации e.Type.
func (p *Publisher) Publish(_ context.Context, e Event) {
	const op = "events.Publish"
	log := p.log.With(
		slog.String("op", op),
		slog.String("type", e.Type),
		slog.String("film_id", e.FilmID),
	)

	if p.ch == nil {
		log.Debug("event broker is not configured, event dropped")
		return
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, e.Type, e); err != nil {
		log.Error("failed to publish event", sl.Err(err))
		return
	}
	log.Debug("event published")
}
