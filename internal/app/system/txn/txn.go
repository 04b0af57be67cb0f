// Package txn runs multi-document writes inside a MongoDB transaction when the
// deployment supports it (replica sets, sharded clusters) and falls back to
// plain sequential writes on a standalone server.
//
// Callers must write fn so that it stays correct without the transaction:
// every step is a conditional single-document write, and any compensation
// needed after a partial failure is done inside fn itself.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// unsupported latches once the server has told us it cannot run transactions.
var unsupported atomic.Bool

// Run executes fn inside a transaction on db's client. The context passed to
// fn carries the session; use it for every operation that should take part.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if unsupported.Load() {
		return fn(ctx)
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			markUnsupported(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		markUnsupported(log, err)
		return fn(ctx)
	}
	return err
}

// InTransaction reports whether ctx carries a session, which is the case for
// the context Run hands to fn when a transaction is actually open.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

func markUnsupported(log *zap.Logger, err error) {
	if unsupported.CompareAndSwap(false, true) && log != nil {
		log.Warn("mongo transactions not supported; running writes without a transaction",
			zap.Error(err))
	}
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, or an operation illegal in a transaction).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation
			51,  // non-replica-set transaction numbers
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	hasSession := strings.Contains(msg, "session")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && hasSession:
		return true
	case hasSession && strings.Contains(msg, "not supported"):
		return true
	case strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}

// Runner binds Run to a database so it can be injected where a transactor
// interface is expected.
type Runner struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func (r Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return Run(ctx, r.DB, r.Log, fn)
}
