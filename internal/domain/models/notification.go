// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds.
const (
	NotificationGroupOwnerAdded = "group_owner_added"
)

// Notification is a queued message for a single recipient. A delivery
// transport drains the notifications collection; DeliveredAt is set once
// the message has been handed off.
type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Kind        string              `bson:"kind" json:"kind"`
	RecipientID primitive.ObjectID  `bson:"recipient_id" json:"recipient_id"`
	Recipient   string              `bson:"recipient" json:"recipient"` // username
	Sender      string              `bson:"sender" json:"sender"`
	GroupID     *primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`
	Subject     string              `bson:"subject" json:"subject"`
	TextBody    string              `bson:"text_body" json:"text_body"`
	HTMLBody    string              `bson:"html_body,omitempty" json:"html_body,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	DeliveredAt *time.Time          `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
}
