// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/grouphub/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/grouphub/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/grouphub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/grouphub/internal/app/features/health"
	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	membershipstore "github.com/dalemusser/grouphub/internal/app/store/memberships"
	notificationstore "github.com/dalemusser/grouphub/internal/app/store/notifications"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/reqlog"
	"github.com/dalemusser/grouphub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// GroupHub wires the group administration service to its MongoDB stores,
// the notification outbox and the audit logger, then mounts the JSON API
// under /groups, its history under /audit and the health check under /health.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	admin := groupadmin.New(groupadmin.Deps{
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Users:       userstore.New(db),
		Notifier:    mailer.NewOutbox(notificationstore.New(db), appCfg.SystemSender, appCfg.SiteName, logger),
		Fields:      deps.Fields,
		Tx:          txn.Runner{DB: db, Log: logger},
		Audit:       deps.Audit,
		Log:         logger,
	}, groupadmin.Options{BulkConcurrency: appCfg.BulkConcurrency})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(reqlog.New(logger))
	r.Use(middleware.Recoverer)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Group administration
	groupsHandler := groupsfeature.NewHandler(admin, deps.BulkJobs, appCfg.BulkAsyncThreshold, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler))

	// Group administration history
	r.Mount("/audit", auditlogfeature.Routes(auditlogfeature.NewHandler(db, logger)))

	return r, nil
}
