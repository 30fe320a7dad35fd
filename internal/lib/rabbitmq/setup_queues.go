package rabbitmq

// QueueConfig — очередь и ключ, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetFilmQueues возвращает очереди событий фильмов.
func GetFilmQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "films.events", RoutingKey: "film.#"},
	}
}
