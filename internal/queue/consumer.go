package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartNotificationConsumer connects to RabbitMQ, declares the
// notifications queue (durable), and starts consuming. Each event is
// appended to logs/notifications.log in a single-line format, the
// stand-in for a mail/push pipeline. The function runs a reconnect
// loop with exponential backoff and keeps running across broker
// outages; a malformed message is rejected without requeue so the
// consumer never tight-loops.
func StartNotificationConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(notificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(notificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleNotification(d.Body); err != nil {
			log.Printf("notification-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleNotification(body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var line string
	switch ev.Kind {
	case KindUserRegistered:
		line = fmt.Sprintf("[%s] New account | user_id=%d | email=%q | role=%s\n",
			ev.OccurredAt, ev.UserID, ev.Email, ev.Role)
	case KindRecoveryRequested:
		line = fmt.Sprintf("[%s] Password recovery | user_id=%d | email=%q | token=%s\n",
			ev.OccurredAt, ev.UserID, ev.Email, ev.Recovery)
	case KindMessageSent:
		line = fmt.Sprintf("[%s] Chat message | message_id=%d | room_id=%d | sender_id=%d\n",
			ev.OccurredAt, ev.MessageID, ev.RoomID, ev.UserID)
	default:
		line = fmt.Sprintf("[%s] Unknown event kind %q\n", ev.OccurredAt, ev.Kind)
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
