// Package dispatch relays confirmed orders to the operator chat.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stroymat/materials-bot/internal/catalog"
	"github.com/stroymat/materials-bot/internal/models"
)

const defaultTimeout = 30 * time.Second

// Notifier sends text to a chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}

// Publisher announces confirmed orders to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, order models.Order) error
}

// Journal records the outcome of every relay attempt.
type Journal interface {
	RecordDispatch(ctx context.Context, rec models.DispatchRecord) error
}

type Config struct {
	OperatorChat int64 // 0 disables relaying
	Timeout      time.Duration
}

type Option func(*Dispatcher)

func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

func WithJournal(j Journal) Option {
	return func(d *Dispatcher) { d.journal = j }
}

// Dispatcher delivers orders in the background. Delivery is attempted once;
// failures are logged and journaled but never reported back to the customer.
type Dispatcher struct {
	notifier     Notifier
	publisher    Publisher
	journal      Journal
	catalog      *catalog.Catalog
	operatorChat int64
	timeout      time.Duration
	logger       *slog.Logger
	wg           sync.WaitGroup
}

func New(cfg Config, cat *catalog.Catalog, notifier Notifier, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		notifier:     notifier,
		catalog:      cat,
		operatorChat: cfg.OperatorChat,
		timeout:      cfg.Timeout,
		logger:       logger,
	}
	if d.timeout <= 0 {
		d.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.operatorChat == 0 {
		logger.Warn("MANAGER_CHAT_ID not configured, orders will not be relayed to an operator")
	}
	return d
}

// Dispatch returns immediately.
func (d *Dispatcher) Dispatch(order models.Order) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(order)
	}()
}

// Close waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(order models.Order) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("order delivery panicked", "order", order.Number, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	status := models.DispatchDelivered
	var errText string

	if d.operatorChat == 0 {
		status = models.DispatchSkipped
		d.logger.Warn("MANAGER_CHAT_ID not configured, order not sent to operator", "order", order.Number)
	} else if err := d.notifier.Notify(ctx, d.operatorChat, FormatOrder(order, d.catalog)); err != nil {
		status = models.DispatchFailed
		errText = err.Error()
		d.logger.Error("failed to send order to operator", "order", order.Number, "error", err)
	} else {
		d.logger.Info("order sent to operator", "order", order.Number)
	}

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, order); err != nil {
			d.logger.Error("failed to publish order event", "order", order.Number, "error", err)
		}
	}

	if d.journal != nil {
		rec := models.DispatchRecord{
			ID:         uuid.NewString(),
			Order:      order,
			Status:     status,
			Error:      errText,
			RecordedAt: time.Now(),
		}
		if err := d.journal.RecordDispatch(ctx, rec); err != nil {
			d.logger.Error("failed to journal dispatch", "order", order.Number, "error", err)
		}
	}
}

// OrderNumber joins the user ID with the last six digits of the unix time.
// Numbers are not guaranteed unique.
func OrderNumber(userID int64, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return strconv.FormatInt(userID, 10) + ts
}

// FormatOrder renders the operator notification.
func FormatOrder(order models.Order, cat *catalog.Catalog) string {
	description := order.Material
	if e, ok := cat.Lookup(order.Material); ok {
		description = e.Description
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 НОВЫЙ ЗАКАЗ #%s\n\n", order.Number))
	sb.WriteString(fmt.Sprintf("👤 Клиент: %s (ID: %d)\n", order.DisplayName, order.UserID))
	sb.WriteString(fmt.Sprintf("📞 Телефон: %s\n", order.Phone))
	sb.WriteString(fmt.Sprintf("📅 Дата заказа: %s\n\n", order.CreatedAt.Format("02.01.2006 15:04")))
	sb.WriteString(fmt.Sprintf("📦 Материал: %s\n", description))
	sb.WriteString(fmt.Sprintf("📏 Количество: %s %s\n", order.Quantity.String(), order.Unit))
	sb.WriteString(fmt.Sprintf("💰 Примерная стоимость: %s₽\n\n", catalog.FormatPrice(order.EstimatedPrice)))
	sb.WriteString(fmt.Sprintf("📍 Адрес доставки:\n%s\n\n", order.Address))
	if order.AIRecommendation != "" {
		sb.WriteString(fmt.Sprintf("🤖 Рекомендация ИИ: %s\n\n", order.AIRecommendation))
	}
	sb.WriteString("⚡ ТРЕБУЕТСЯ СВЯЗАТЬСЯ С КЛИЕНТОМ!")
	return sb.String()
}
