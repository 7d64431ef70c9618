package memory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
	apperrors "dddkit/pkg/errors"
	"dddkit/pkg/logger"
)

const tracerName = "dddkit/infrastructure/persistence/memory"

type auditStamp struct {
	at time.Time
	by string
}

type staged struct {
	affected int64
	writes   []func()
	effects  []func()
}

type tracked interface {
	detectChanges()
	sources() []shared.EventSource
	stage(stamp auditStamp) (staged, error)
	acceptChanges()
	clear()
}

// UnitOfWork commits the stores created on it against a Database
type UnitOfWork struct {
	db         *Database
	stores     []tracked
	dispatcher shared.EventDispatcher
	now        func() time.Time
	tracer     trace.Tracer
}

type Option func(*UnitOfWork)

func WithDispatcher(dispatcher shared.EventDispatcher) Option {
	return func(u *UnitOfWork) { u.dispatcher = dispatcher }
}

func WithClock(now func() time.Time) Option {
	return func(u *UnitOfWork) { u.now = now }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(u *UnitOfWork) { u.tracer = tracer }
}

func NewUnitOfWork(db *Database, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{db: db, now: time.Now}
	for _, opt := range opts {
		opt(u)
	}
	if u.tracer == nil {
		u.tracer = otel.Tracer(tracerName)
	}
	return u
}

func (u *UnitOfWork) register(store tracked) {
	u.stores = append(u.stores, store)
}

// Commit validates every store's pending writes and applies all of them, or none
func (u *UnitOfWork) Commit(ctx context.Context) (affected int64, err error) {
	ctx, span := u.tracer.Start(ctx, "UnitOfWork.Commit")
	defer func() {
		span.SetAttributes(attribute.Int64("db.rows_affected", affected))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperrors.Classify(err)))
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var sources []shared.EventSource
	for _, s := range u.stores {
		s.detectChanges()
		sources = append(sources, s.sources()...)
	}
	stamp := auditStamp{at: u.now().UTC(), by: persistence.ActorFromContext(ctx)}

	var all []staged
	u.db.mu.Lock()
	for _, s := range u.stores {
		st, err := s.stage(stamp)
		if err != nil {
			u.db.mu.Unlock()
			logger.FromContext(ctx).Warn("unit of work commit failed",
				zap.String("error_code", string(apperrors.Classify(err))),
				zap.Error(err),
			)
			return 0, err
		}
		all = append(all, st)
	}
	for _, st := range all {
		for _, write := range st.writes {
			write()
		}
		affected += st.affected
	}
	u.db.mu.Unlock()

	for _, st := range all {
		for _, apply := range st.effects {
			apply()
		}
	}
	for _, s := range u.stores {
		s.acceptChanges()
	}
	persistence.PublishCommitted(ctx, u.dispatcher, sources)
	return affected, nil
}

func (u *UnitOfWork) Clear() {
	for _, s := range u.stores {
		s.clear()
	}
}

var _ shared.UnitOfWork = (*UnitOfWork)(nil)
