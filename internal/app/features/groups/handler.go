// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	"github.com/dalemusser/grouphub/internal/app/system/bulkjobs"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; bulk rosters are the largest.
const maxBodyBytes = 4 << 20

// Admin is the group administration core as seen by the HTTP layer.
type Admin interface {
	GetGroup(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	CreateGroup(ctx context.Context, in groupadmin.CreateGroupInput) (models.Group, error)
	UpdateGroup(ctx context.Context, id primitive.ObjectID, upd groupadmin.GroupUpdate) (models.Group, error)
	DestroyGroup(ctx context.Context, id primitive.ObjectID) error
	ListOwners(ctx context.Context, id primitive.ObjectID) ([]models.User, error)
	AddOwners(ctx context.Context, id primitive.ObjectID, tokens []string, notify bool) ([]string, error)
	RemoveOwner(ctx context.Context, id, userID primitive.ObjectID) error
	BulkAssign(ctx context.Context, id primitive.ObjectID, tokens []string) (groupadmin.BulkOutcome, error)
	CheckBulkAssign(ctx context.Context, id primitive.ObjectID) error
	EstimateAutomaticMembership(ctx context.Context, id primitive.ObjectID, pattern string) (int64, error)
}

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Admin Admin
	// Jobs runs large bulk assignments in the background. With a nil
	// queue every bulk assignment runs inline.
	Jobs *bulkjobs.Queue[groupadmin.BulkOutcome]
	// AsyncThreshold is the roster size above which bulk assignment is
	// queued instead of run inline.
	AsyncThreshold int
	Log            *zap.Logger
}

// NewHandler constructs a groups Handler. It is called from the bootstrap
// BuildHandler function once the service and job queue exist.
func NewHandler(admin Admin, jobs *bulkjobs.Queue[groupadmin.BulkOutcome], asyncThreshold int, logger *zap.Logger) *Handler {
	return &Handler{
		Admin:          admin,
		Jobs:           jobs,
		AsyncThreshold: asyncThreshold,
		Log:            logger,
	}
}

// successResponse is the body of operations with nothing else to report.
type successResponse struct {
	Success string `json:"success"`
}

var okResponse = successResponse{Success: "OK"}

// groupID parses the {id} URL parameter, answering 400 when it is malformed.
func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	return parseID(w, chi.URLParam(r, "id"), "group")
}

func parseID(w http.ResponseWriter, raw, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		apierrors.Render(w, http.StatusBadRequest, "Invalid "+what+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// decode reads a JSON request body into v, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierrors.Render(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// fail maps a service error to its HTTP response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *groupadmin.ValidationError
	switch {
	case errors.Is(err, groupadmin.ErrGroupNotFound):
		apierrors.Render(w, http.StatusNotFound, "Group not found")
	case errors.Is(err, groupadmin.ErrGroupImmutable):
		apierrors.Render(w, http.StatusUnprocessableEntity, "You cannot modify an automatic group")
	case errors.As(err, &ve):
		apierrors.Render(w, http.StatusBadRequest, ve.Errors...)
	default:
		h.Log.Error(op+" failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		apierrors.Render(w, http.StatusInternalServerError, "Internal server error")
	}
}
