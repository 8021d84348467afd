// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// ServeList handles GET /audit: the group administration history, newest
// first, filtered by group_id, user_id, category, event_type and an
// inclusive start_date/end_date range.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page, msg := parseFilter(r)
	if msg != "" {
		apierrors.Render(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		apierrors.Render(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		apierrors.Render(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toListItem(e))
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	apierrors.WriteJSON(w, http.StatusOK, listResponse{
		Logs:       items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	})
}

// parseFilter reads the list filters from the query string. A non-empty
// message reports the first malformed parameter.
func parseFilter(r *http.Request) (audit.QueryFilter, int, string) {
	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		EventType: query.Get(r, "event_type"),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if c := query.Get(r, "category"); c != "" {
		if !knownCategories[c] {
			return filter, page, "Invalid category"
		}
		filter.Category = c
	}

	for _, p := range []struct {
		key string
		dst **primitive.ObjectID
	}{
		{"group_id", &filter.GroupID},
		{"user_id", &filter.UserID},
	} {
		raw := query.Get(r, p.key)
		if raw == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return filter, page, "Invalid " + p.key
		}
		*p.dst = &id
	}

	if raw := query.Get(r, "start_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, page, "Invalid start_date"
		}
		filter.StartTime = &t
	}
	if raw := query.Get(r, "end_date"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, page, "Invalid end_date"
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	return filter, page, ""
}
