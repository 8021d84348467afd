package mailer

import (
	"context"

	"github.com/dalemusser/grouphub/internal/domain/models"
	"go.uber.org/zap"
)

// NotificationWriter persists queued notifications.
type NotificationWriter interface {
	Insert(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Outbox queues group notifications for delivery. Every message is sent
// from the configured system sender.
type Outbox struct {
	store    NotificationWriter
	sender   string
	siteName string
	log      *zap.Logger
}

// NewOutbox creates an Outbox writing to store.
func NewOutbox(store NotificationWriter, sender, siteName string, log *zap.Logger) *Outbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Outbox{store: store, sender: sender, siteName: siteName, log: log}
}

// NotifyOwnerAdded queues the owner-added message for u.
func (o *Outbox) NotifyOwnerAdded(ctx context.Context, g models.Group, u models.User) error {
	msg := BuildOwnerAddedMessage(OwnerAddedData{
		SiteName:  o.siteName,
		GroupName: g.Name,
		Username:  u.Username,
	})
	groupID := g.ID
	n, err := o.store.Insert(ctx, models.Notification{
		Kind:        models.NotificationGroupOwnerAdded,
		RecipientID: u.ID,
		Recipient:   u.Username,
		Sender:      o.sender,
		GroupID:     &groupID,
		Subject:     msg.Subject,
		TextBody:    msg.TextBody,
		HTMLBody:    msg.HTMLBody,
	})
	if err != nil {
		return err
	}
	o.log.Debug("owner notification queued",
		zap.String("notification_id", n.ID.Hex()),
		zap.String("group_id", g.ID.Hex()),
		zap.String("recipient", u.Username))
	return nil
}
