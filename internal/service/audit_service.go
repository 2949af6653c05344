package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/product-links/internal/events"
	"github.com/spec-kit/product-links/internal/repository"
)

// AuditService reacts to catalogue and link events.
type AuditService struct {
	dispatcher events.Dispatcher
	links      repository.LinkRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, links repository.LinkRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{dispatcher: dispatcher, links: links, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLinkAccessed, a.handleLinkAccessed)
	a.dispatcher.Subscribe(events.EventLinkIssued, a.logEvent)
	a.dispatcher.Subscribe(events.EventProductCreated, a.logEvent)
	a.dispatcher.Subscribe(events.EventProductsSynced, a.logEvent)
}

func (a *AuditService) handleLinkAccessed(ctx context.Context, event events.Event) error {
	at := event.Timestamp
	if payload, ok := event.Payload.(events.LinkAccessedPayload); ok && !payload.AccessedAt.IsZero() {
		at = payload.AccessedAt
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := a.links.RecordAccess(ctx, event.LinkID, at); err != nil {
		return fmt.Errorf("record access of link %d: %w", event.LinkID, err)
	}
	a.logger.Debug("LinkAccessed", zap.Int64("link_id", event.LinkID), zap.Int64("product_id", event.ProductID))
	return nil
}

func (a *AuditService) logEvent(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("product_id", event.ProductID),
		zap.Any("payload", event.Payload),
	}
	if event.LinkID != 0 {
		fields = append(fields, zap.Int64("link_id", event.LinkID))
	}
	if event.Actor.StaffID != nil {
		fields = append(fields, zap.String("staff_id", *event.Actor.StaffID))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}
