// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/grouphub/internal/app/store/audit"
)

// listItem is a single audit event in the list response.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	GroupID       string            `json:"group_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// listResponse is the body of GET /audit.
type listResponse struct {
	Logs       []listItem `json:"logs"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}

func toListItem(e audit.Event) listItem {
	item := listItem{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.GroupID != nil {
		item.GroupID = e.GroupID.Hex()
	}
	if e.UserID != nil {
		item.UserID = e.UserID.Hex()
	}
	return item
}

// knownCategories are the accepted values of the category filter.
var knownCategories = map[string]bool{
	audit.CategoryAdmin:  true,
	audit.CategorySystem: true,
}
