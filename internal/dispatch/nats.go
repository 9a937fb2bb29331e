package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stroymat/materials-bot/internal/models"
)

// NATSPublisher emits an order event on a subject for downstream consumers.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject, name string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS", "url", url, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

type orderEvent struct {
	Number           string    `json:"number"`
	UserID           int64     `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	Material         string    `json:"material"`
	Quantity         string    `json:"quantity"`
	Unit             string    `json:"unit"`
	Address          string    `json:"address"`
	Phone            string    `json:"phone"`
	EstimatedPrice   string    `json:"estimated_price"`
	AIRecommendation string    `json:"ai_recommendation,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

func newOrderEvent(o models.Order) orderEvent {
	return orderEvent{
		Number:           o.Number,
		UserID:           o.UserID,
		DisplayName:      o.DisplayName,
		Material:         o.Material,
		Quantity:         o.Quantity.String(),
		Unit:             o.Unit,
		Address:          o.Address,
		Phone:            o.Phone,
		EstimatedPrice:   o.EstimatedPrice.String(),
		AIRecommendation: o.AIRecommendation,
		CreatedAt:        o.CreatedAt,
		ConfirmedAt:      o.ConfirmedAt,
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, order models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(newOrderEvent(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending events before closing the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
