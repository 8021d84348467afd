// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a MongoDB multi-document transaction.
//
// Standalone servers (common in development) do not support transactions.
// When the server reports that, Run logs once at debug level and executes
// fn without a transaction, so each write is individually durable.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runPlain(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runPlain(ctx, log, err, fn)
	}
	return err
}

func runPlain(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Debug("transactions not supported; running without transaction", zap.Error(cause))
	}
	return fn(ctx)
}

// Runner adapts Run to callers that only need a Run(ctx, fn) method.
type Runner struct {
	DB  *mongo.Database
	Log *zap.Logger
}

// Run executes fn in a transaction on r.DB.
func (r Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.DB, r.Log, fn)
}

// Server error codes meaning "no transactions here".
var notSupportedCodes = []int{
	20,  // IllegalOperation: transaction numbers only on replica set members
	263, // OperationNotSupportedInTransaction
}

// notSupportedMessages are the exact server and driver messages for a
// deployment without transactions, lower-cased.
var notSupportedMessages = []string{
	"transaction numbers are only allowed on a replica set member or mongos",
	"transactions are not supported by this deployment",
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server). Aborts, write conflicts and callback
// errors are not matched, whatever their wording.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range notSupportedCodes {
			if se.HasErrorCode(code) {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, m := range notSupportedMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
