// Package events publishes domain events to the configured message broker.
// Publishing is best-effort: a broker failure is logged and never surfaced
// to the request that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/traderedge/apiserver/config"
	"github.com/traderedge/apiserver/internal/mq"
	"github.com/traderedge/apiserver/types"
)

const (
	TypeUserRegistered = "user.registered"
	TypeTradeCreated   = "trade.created"

	attrEventType = "event_type"

	publishTimeout = 5 * time.Second
)

// Publisher emits journal domain events. A nil Publisher, or one
// constructed without a broker, drops every event silently.
type Publisher struct {
	broker   *mq.MQ
	channels config.EventsConfig
	logger   *zap.Logger
}

// NewPublisher constructs a Publisher. broker may be nil when no backend
// is configured.
func NewPublisher(broker *mq.MQ, channels config.EventsConfig, logger *zap.Logger) *Publisher {
	return &Publisher{broker: broker, channels: channels, logger: logger}
}

type userRegisteredEvent struct {
	Type       string    `json:"type"`
	UserID     int       `json:"user_id"`
	Email      string    `json:"email"`
	PlanType   string    `json:"plan_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

type tradeCreatedEvent struct {
	Type       string    `json:"type"`
	TradeID    int       `json:"trade_id"`
	UserID     int       `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserRegistered publishes a user.registered event.
func (p *Publisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, p.channels.UserChannel, TypeUserRegistered, userRegisteredEvent{
		Type:       TypeUserRegistered,
		UserID:     user.ID,
		Email:      user.Email,
		PlanType:   user.PlanType,
		OccurredAt: time.Now().UTC(),
	})
}

// TradeCreated publishes a trade.created event.
func (p *Publisher) TradeCreated(ctx context.Context, trade types.Trade) {
	p.publish(ctx, p.channels.TradeChannel, TypeTradeCreated, tradeCreatedEvent{
		Type:       TypeTradeCreated,
		TradeID:    trade.ID,
		UserID:     trade.UserID,
		Symbol:     trade.Symbol,
		Direction:  trade.Direction,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, channel, eventType string, payload any) {
	if p == nil || p.broker == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if _, err := p.broker.Publish(ctx, channel, data, map[string]string{attrEventType: eventType}); err != nil {
		p.logger.Warn("publish event",
			zap.String("event_type", eventType),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}
