package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pannatron/Bakugan-Dashboard-sub000/internal/domain"
	pkgkafka "github.com/pannatron/Bakugan-Dashboard-sub000/pkg/kafka"
	"github.com/pannatron/Bakugan-Dashboard-sub000/pkg/logger"
)

// Kafka topics for catalog events. The event type equals the topic name.
var (
	TopicItemCreated   = pkgkafka.Topic("item", "created")
	TopicItemUpdated   = pkgkafka.Topic("item", "updated")
	TopicItemDeleted   = pkgkafka.Topic("item", "deleted")
	TopicPriceRecorded = pkgkafka.Topic("price", "recorded")
	TopicPriceDeleted  = pkgkafka.Topic("price", "deleted")
)

// AllTopics lists every topic the catalog service publishes to.
func AllTopics() []string {
	return []string{TopicItemCreated, TopicItemUpdated, TopicItemDeleted, TopicPriceRecorded, TopicPriceDeleted}
}

const (
	AggregateTypeItem = "bakugan"
	SourceCatalog     = "catalog-service"
)

// ItemDeletedData is the payload of an item.deleted event.
type ItemDeletedData struct {
	ID string `json:"id"`
}

// PriceDeletedData is the payload of a price.deleted event.
type PriceDeletedData struct {
	ItemID  string `json:"bakuganId"`
	PriceID string `json:"priceId"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog events. A nil Publisher disables publishing.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates an event producer. kafka may be nil.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishItemCreated publishes the full item.
func (p *Producer) PublishItemCreated(ctx context.Context, item *domain.CatalogItem) error {
	return p.publish(ctx, TopicItemCreated, item.ID, item)
}

// PublishItemUpdated publishes the full item after the update.
func (p *Producer) PublishItemUpdated(ctx context.Context, item *domain.CatalogItem) error {
	return p.publish(ctx, TopicItemUpdated, item.ID, item)
}

// PublishItemDeleted publishes the ID of a removed item.
func (p *Producer) PublishItemDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicItemDeleted, id, ItemDeletedData{ID: id})
}

// PublishPriceRecorded publishes a new price point.
func (p *Producer) PublishPriceRecorded(ctx context.Context, point *domain.PricePoint) error {
	return p.publish(ctx, TopicPriceRecorded, point.ItemID, point)
}

// PublishPriceDeleted publishes the removal of a price point.
func (p *Producer) PublishPriceDeleted(ctx context.Context, itemID, priceID string) error {
	return p.publish(ctx, TopicPriceDeleted, itemID, PriceDeletedData{ItemID: itemID, PriceID: priceID})
}

func (p *Producer) publish(ctx context.Context, topic, itemID string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	ev, err := pkgkafka.NewEvent(topic, itemID, AggregateTypeItem, SourceCatalog, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published catalog event",
		slog.String("topic", topic),
		slog.String("bakugan_id", itemID),
	)
	return nil
}
