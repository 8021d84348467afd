// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Admin controls logging for group administration events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
	// System controls logging for events raised by the service itself,
	// such as provisioning automatic groups at startup. Same values as Admin.
	System string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategorySystem:
		setting = l.config.System
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if (setting == "all" || setting == "log") && l.zapLog != nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Group administration events ---

// GroupCreated logs when an admin creates a group.
func (l *Logger) GroupCreated(ctx context.Context, groupID primitive.ObjectID, groupName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupCreated,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"group_name": groupName},
	})
}

// GroupUpdated logs when an admin updates a group.
func (l *Logger) GroupUpdated(ctx context.Context, groupID primitive.ObjectID, fieldsChanged []string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupUpdated,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"fields_changed": strings.Join(fieldsChanged, ",")},
	})
}

// GroupDeleted logs when an admin deletes a group.
func (l *Logger) GroupDeleted(ctx context.Context, groupID primitive.ObjectID, groupName string, memberships int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupDeleted,
		GroupID:   &groupID,
		Success:   true,
		Details: map[string]string{
			"group_name":          groupName,
			"memberships_removed": strconv.FormatInt(memberships, 10),
		},
	})
}

// OwnersAdded logs an add-owners operation.
func (l *Logger) OwnersAdded(ctx context.Context, groupID primitive.ObjectID, usernames []string, notified bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupOwnersAdded,
		GroupID:   &groupID,
		Success:   true,
		Details: map[string]string{
			"usernames": strings.Join(usernames, ","),
			"notified":  strconv.FormatBool(notified),
		},
	})
}

// OwnerRemoved logs removal of a single owner flag.
func (l *Logger) OwnerRemoved(ctx context.Context, groupID, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupOwnerRemoved,
		GroupID:   &groupID,
		UserID:    &userID,
		Success:   true,
	})
}

// MembersBulkAdded logs a bulk assignment. The event is marked failed
// when any resolved user could not be assigned.
func (l *Logger) MembersBulkAdded(ctx context.Context, groupID primitive.ObjectID, added, notFound, failed int) {
	ev := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventGroupMembersBulkAdded,
		GroupID:   &groupID,
		Success:   failed == 0,
		Details: map[string]string{
			"added":     strconv.Itoa(added),
			"not_found": strconv.Itoa(notFound),
			"failed":    strconv.Itoa(failed),
		},
	}
	if failed > 0 {
		ev.FailureReason = "some users could not be assigned"
	}
	l.Log(ctx, ev)
}

// --- System events ---

// AutomaticGroupProvisioned logs a system-managed group being ensured at startup.
func (l *Logger) AutomaticGroupProvisioned(ctx context.Context, groupID primitive.ObjectID, groupName string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySystem,
		EventType: audit.EventAutomaticGroupProvisioned,
		GroupID:   &groupID,
		Success:   true,
		Details:   map[string]string{"group_name": groupName},
	})
}
