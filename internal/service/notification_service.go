package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-auth/internal/config"
	"github.com/spec-kit/storefront-auth/internal/events"
)

// NotificationService delivers token secrets and security notices out of
// band. Email and webhook delivery are stubs logging at debug level.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to auth events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventResetRequested, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventVerificationRequested, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventOtpIssued, n.handleTokenIssued)
	n.dispatcher.Subscribe(events.EventOtpAttemptsExceeded, n.handleSecurityNotice)
	n.dispatcher.Subscribe(events.EventResetCompleted, n.handleSecurityNotice)
}

func (n *NotificationService) handleTokenIssued(ctx context.Context, event events.Event) error {
	n.logger.Info("token issued", zap.String("owner_id", event.OwnerID), zap.String("event_type", string(event.Type)))
	n.sendEmailStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSecurityNotice(ctx context.Context, event events.Event) error {
	n.logger.Info("security notice", zap.String("owner_id", event.OwnerID), zap.String("event_type", string(event.Type)))
	n.sendEmailStub(ctx, event)
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("owner_id", event.OwnerID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("owner_id", event.OwnerID),
		zap.String("event_type", string(event.Type)))
}
