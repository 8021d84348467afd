// internal/app/features/groups/bulk.go
package groups

import (
	"context"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	"github.com/dalemusser/grouphub/internal/app/system/bulkjobs"
	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type bulkAssignRequest struct {
	Users []string `json:"users"`
}

type bulkQueuedResponse struct {
	JobID  string          `json:"job_id"`
	Status bulkjobs.Status `json:"status"`
}

// HandleBulkAssign handles PUT /groups/{id}/bulk.
//
// Rosters up to AsyncThreshold tokens run inline and answer 200 with the
// outcome. Larger rosters are checked, queued and answered with 202 and a
// job id to poll at /groups/bulk-jobs/{jobID}.
func (h *Handler) HandleBulkAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req bulkAssignRequest
	if !decode(w, r, &req) {
		return
	}
	tokens := normalize.TokenList(req.Users)

	if h.Jobs == nil || h.AsyncThreshold <= 0 || len(tokens) <= h.AsyncThreshold {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "bulk assign")
		defer cancel()

		out, err := h.Admin.BulkAssign(ctx, id, tokens)
		if err != nil {
			h.fail(w, r, "bulk assign", err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, out)
		return
	}

	// Reject missing and automatic groups now rather than in the job.
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "check bulk assign")
	defer cancel()
	if err := h.Admin.CheckBulkAssign(ctx, id); err != nil {
		h.fail(w, r, "bulk assign", err)
		return
	}
	jobID, err := h.Jobs.Submit(func(ctx context.Context) (groupadmin.BulkOutcome, error) {
		return h.Admin.BulkAssign(ctx, id, tokens)
	})
	if err != nil {
		if errors.Is(err, bulkjobs.ErrQueueFull) || errors.Is(err, bulkjobs.ErrStopped) {
			h.Log.Warn("bulk assign not queued", zap.String("group_id", id.Hex()), zap.Error(err))
			apierrors.Render(w, http.StatusServiceUnavailable, "Too many bulk assignments in progress, try again later")
			return
		}
		h.fail(w, r, "bulk assign", err)
		return
	}

	h.Log.Info("bulk assign queued",
		zap.String("group_id", id.Hex()),
		zap.String("job_id", jobID),
		zap.Int("tokens", len(tokens)))
	apierrors.WriteJSON(w, http.StatusAccepted, bulkQueuedResponse{JobID: jobID, Status: bulkjobs.StatusPending})
}

// ServeBulkJob handles GET /groups/bulk-jobs/{jobID}.
func (h *Handler) ServeBulkJob(w http.ResponseWriter, r *http.Request) {
	if h.Jobs == nil {
		apierrors.Render(w, http.StatusNotFound, "Bulk job not found")
		return
	}
	job, ok := h.Jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		apierrors.Render(w, http.StatusNotFound, "Bulk job not found")
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, job)
}
