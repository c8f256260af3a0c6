// Package event publishes best-effort outbound notifications -- currently
// just session_completed, emitted when the Session Manager transitions a
// session to completed. Delivery never blocks or fails session-level
// correctness; a broker outage only drops the notification, never the
// answer.
package event

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/streadway/amqp"
)

// SessionCompletedPayload is the body of a session_completed event.
type SessionCompletedPayload struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Summary   map[string]any `json:"summary"`
}

const EventSessionCompleted = "session_completed"

type EventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewEventPublisher(amqpURL, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *EventPublisher) Publish(eventType string, payload interface{}) error {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Log to console
	fmt.Printf("[EVENT] %s: %v\n", eventType, payload)

	// Log to file
	f, ferr := os.OpenFile("event.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if ferr == nil {
		defer f.Close()
		f.WriteString(fmt.Sprintf("[EVENT] %s: %v\n", eventType, payload))
	}

	// Use the event type as the routing key for topic exchange
	return p.channel.Publish(
		p.exchange,
		eventType, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// PublishSessionCompleted notifies observers that a session reached
// completed status. summary is a small stats snapshot (question_count,
// correct_count, wrong_count, time_spent_s) rather than the full Session
// record.
func (p *EventPublisher) PublishSessionCompleted(sessionID, userID string, summary map[string]any) error {
	return p.Publish(EventSessionCompleted, SessionCompletedPayload{
		SessionID: sessionID,
		UserID:    userID,
		Summary:   summary,
	})
}

func (p *EventPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
