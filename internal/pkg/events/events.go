// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectBusinessStatusChanged = "bizfox.business.status_changed"
	SubjectLeadCreated           = "bizfox.lead.created"
	SubjectReviewCreated         = "bizfox.review.created"
)

// Event is the envelope for every published message
type Event struct {
	ID         string         `json:"id"`
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// Publisher emits domain events
type Publisher interface {
	Publish(ctx context.Context, subject string, data map[string]any) error
	Close()
}

// NATSPublisher publishes JSON events on a core NATS connection
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect dials url. An empty url returns a NopPublisher so events are optional.
func Connect(url string) (Publisher, error) {
	if url == "" {
		log.Info("[Events] NATS_URL not set, domain events are disabled")
		return NopPublisher{}, nil
	}

	opts := []nats.Option{
		nats.Name("bizfox"),
		nats.Timeout(10 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warnf("[Events] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("[Events] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Infof("[Events] connected to NATS at %s", url)
	return &NATSPublisher{conn: conn}, nil
}

// Publish wraps data in an Event envelope and sends it on subject
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(NewEvent(subject, data))
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// NewEvent builds an envelope with a fresh id
func NewEvent(subject string, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, map[string]any) error { return nil }
func (NopPublisher) Close()                                                {}

// PublishBestEffort logs publish failures instead of returning them
func PublishBestEffort(ctx context.Context, p Publisher, subject string, data map[string]any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, data); err != nil {
		log.Warnf("[Events] failed to publish %s: %v", subject, err)
	}
}
