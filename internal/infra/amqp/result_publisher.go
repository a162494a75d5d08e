package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"jsquiz-service/internal/domain"
)

// RoutingKey is used for every finished-quiz event.
const RoutingKey = "quiz.completed"

// ResultPublisher sends finished quizzes to a topic exchange.
type ResultPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
}

// NewResultPublisher connects and declares the exchange. An empty URL yields a disabled publisher.
func NewResultPublisher(url, exchange string) (*ResultPublisher, error) {
	if url == "" {
		log.Println("amqp url is empty, result publishing is disabled")
		return &ResultPublisher{enabled: false}, nil
	}
	if exchange == "" {
		exchange = "quiz.events"
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &ResultPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		enabled:  true,
	}, nil
}

// ResultEvent is the message body published for a finished quiz.
type ResultEvent struct {
	SessionID        string                   `json:"sessionId"`
	Username         string                   `json:"username"`
	Theme            string                   `json:"theme"`
	CorrectCount     int                      `json:"correctCount"`
	Total            int                      `json:"total"`
	TotalTimeSeconds int                      `json:"totalTimeSeconds"`
	Breakdown        []domain.QuestionOutcome `json:"breakdown"`
	FinishedAt       time.Time                `json:"finishedAt"`
}

// NewResultEvent flattens a result for the wire.
func NewResultEvent(username string, result domain.Result) ResultEvent {
	return ResultEvent{
		SessionID:        result.SessionID,
		Username:         username,
		Theme:            result.Theme,
		CorrectCount:     result.CorrectCount,
		Total:            result.Total,
		TotalTimeSeconds: result.TotalTimeSeconds,
		Breakdown:        result.Breakdown,
		FinishedAt:       result.FinishedAt,
	}
}

func (p *ResultPublisher) PublishResult(ctx context.Context, username string, result domain.Result) error {
	if !p.enabled {
		return nil
	}

	body, err := json.Marshal(NewResultEvent(username, result))
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchange, // exchange
		RoutingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    result.SessionID,
			Timestamp:    result.FinishedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Close releases the channel and connection; safe on a disabled publisher.
func (p *ResultPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
