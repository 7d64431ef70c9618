package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"dddkit/domain/shared"
	apperrors "dddkit/pkg/errors"
	"dddkit/pkg/logger"
)

const tracerName = "dddkit/infrastructure/persistence"

// ErrTransientIdentity is returned when an aggregate without identity is inserted
// into a store that cannot generate one
var ErrTransientIdentity = errors.New("aggregate has no identity and the store cannot generate one")

// Adapter is what a store must offer the reconciliation engine.
// Mark* calls only record intent; nothing reaches storage until the unit of work commits.
type Adapter[A any, ID comparable] interface {
	IsAttached(aggregate A) bool
	ExistsByID(ctx context.Context, id ID) (bool, error)
	MarkForInsert(aggregate A)
	MarkForUpdate(aggregate A)
	MarkForRemoval(aggregate A)
	GetByID(ctx context.Context, id ID) (A, bool, error)
}

// Finder is implemented by adapters that can evaluate specifications
type Finder[A any] interface {
	Find(ctx context.Context, spec *shared.Specification[A]) ([]A, error)
}

// Intent is the persistence action chosen for an aggregate
type Intent string

const (
	IntentNone       Intent = "none"
	IntentInsert     Intent = "insert"
	IntentUpdate     Intent = "update"
	IntentSoftDelete Intent = "soft_delete"
	IntentDelete     Intent = "delete"
)

// Repository reconciles aggregates against an Adapter. It holds no state of its own
// beyond configuration and is safe to share as long as the adapter is.
type Repository[A shared.Aggregate[ID], ID comparable] struct {
	adapter Adapter[A, ID]
	name    string
	now     func() time.Time
	tracer  trace.Tracer
}

// RepositoryOption configures a Repository
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	name   string
	now    func() time.Time
	tracer trace.Tracer
}

// WithClock replaces time.Now for soft-delete timestamps
func WithClock(now func() time.Time) RepositoryOption {
	return func(o *repositoryOptions) { o.now = now }
}

// WithName overrides the aggregate name used in logs, spans and not-found errors
func WithName(name string) RepositoryOption {
	return func(o *repositoryOptions) { o.name = name }
}

// WithTracer overrides the global OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) RepositoryOption {
	return func(o *repositoryOptions) { o.tracer = tracer }
}

func NewRepository[A shared.Aggregate[ID], ID comparable](adapter Adapter[A, ID], opts ...RepositoryOption) *Repository[A, ID] {
	o := repositoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		var zero A
		o.name = shared.TypeName(zero)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return &Repository[A, ID]{adapter: adapter, name: o.name, now: o.now, tracer: o.tracer}
}

// Save implements shared.Repository
func (r *Repository[A, ID]) Save(ctx context.Context, aggregate A) error {
	_, err := r.Reconcile(ctx, aggregate)
	return err
}

// Reconcile decides how aggregate reaches storage:
//   - attached to the unit of work: nothing to do, changes are tracked already
//   - transient id: insert
//   - a row with the id exists: full-row update of a detached copy
//   - otherwise: insert
//
// Probe errors are returned unchanged and leave no intent recorded.
func (r *Repository[A, ID]) Reconcile(ctx context.Context, aggregate A) (intent Intent, err error) {
	if isNilAggregate(aggregate) {
		return IntentNone, shared.NewValidationError(r.name, "aggregate", "aggregate cannot be nil")
	}

	ctx, span := r.startSpan(ctx, "Repository.Save", aggregate.ID())
	defer func() { r.endSpan(span, intent, err) }()

	if err := ctx.Err(); err != nil {
		return IntentNone, err
	}

	if r.adapter.IsAttached(aggregate) {
		r.logIntent(ctx, aggregate.ID(), IntentNone)
		return IntentNone, nil
	}

	if !aggregate.IsTransient() {
		exists, err := r.adapter.ExistsByID(ctx, aggregate.ID())
		if err != nil {
			r.logFailure(ctx, "existence probe failed", aggregate.ID(), err)
			return IntentNone, err
		}
		if err := ctx.Err(); err != nil {
			return IntentNone, err
		}
		if exists {
			r.adapter.MarkForUpdate(aggregate)
			r.logIntent(ctx, aggregate.ID(), IntentUpdate)
			return IntentUpdate, nil
		}
	}

	r.adapter.MarkForInsert(aggregate)
	r.logIntent(ctx, aggregate.ID(), IntentInsert)
	return IntentInsert, nil
}

// Remove implements shared.Repository
func (r *Repository[A, ID]) Remove(ctx context.Context, aggregate A) error {
	_, err := r.Delete(ctx, aggregate)
	return err
}

// Delete flags soft-deletable aggregates and marks the rest for physical removal.
// A soft-deletable aggregate is never physically removed.
func (r *Repository[A, ID]) Delete(ctx context.Context, aggregate A) (intent Intent, err error) {
	if isNilAggregate(aggregate) {
		return IntentNone, shared.NewValidationError(r.name, "aggregate", "aggregate cannot be nil")
	}

	ctx, span := r.startSpan(ctx, "Repository.Remove", aggregate.ID())
	defer func() { r.endSpan(span, intent, err) }()

	if err := ctx.Err(); err != nil {
		return IntentNone, err
	}

	if soft, ok := any(aggregate).(shared.SoftDeletable); ok {
		soft.MarkDeleted(r.now().UTC())
		if by, ok := any(aggregate).(interface{ SetDeletedBy(string) }); ok {
			by.SetDeletedBy(ActorFromContext(ctx))
		}
		if !r.adapter.IsAttached(aggregate) {
			r.adapter.MarkForUpdate(aggregate)
		}
		r.logIntent(ctx, aggregate.ID(), IntentSoftDelete)
		return IntentSoftDelete, nil
	}

	r.adapter.MarkForRemoval(aggregate)
	r.logIntent(ctx, aggregate.ID(), IntentDelete)
	return IntentDelete, nil
}

// GetByID looks the aggregate up by primary key. Absence is found == false with a nil error.
func (r *Repository[A, ID]) GetByID(ctx context.Context, id ID) (aggregate A, found bool, err error) {
	ctx, span := r.startSpan(ctx, "Repository.GetByID", id)
	defer func() {
		span.SetAttributes(attribute.Bool("aggregate.found", found))
		r.endSpan(span, "", err)
	}()

	aggregate, found, err = r.adapter.GetByID(ctx, id)
	if err != nil {
		r.logFailure(ctx, "lookup failed", id, err)
	}
	return aggregate, found, err
}

// GetRequired is GetByID for callers that treat absence as an error
func (r *Repository[A, ID]) GetRequired(ctx context.Context, id ID) (A, error) {
	aggregate, found, err := r.GetByID(ctx, id)
	if err != nil {
		return aggregate, err
	}
	if !found {
		return aggregate, shared.NewEntityNotFoundError(r.name, id)
	}
	return aggregate, nil
}

// Find evaluates spec through the adapter when it supports queries
func (r *Repository[A, ID]) Find(ctx context.Context, spec *shared.Specification[A]) (result []A, err error) {
	ctx, span := r.tracer.Start(ctx, "Repository.Find", trace.WithAttributes(
		attribute.String("aggregate.type", r.name),
	))
	defer func() {
		span.SetAttributes(attribute.Int("query.results", len(result)))
		r.endSpan(span, "", err)
	}()

	finder, ok := r.adapter.(Finder[A])
	if !ok {
		return nil, fmt.Errorf("%s store cannot evaluate specifications: %w", r.name, errors.ErrUnsupported)
	}
	if spec == nil {
		spec = shared.MatchAll[A]()
	}
	return finder.Find(ctx, spec)
}

// ----------------------------------------------------------------------------
// tracing and logging
// ----------------------------------------------------------------------------

func (r *Repository[A, ID]) startSpan(ctx context.Context, name string, id ID) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("aggregate.type", r.name),
		attribute.String("aggregate.id", fmt.Sprint(id)),
	))
}

func (r *Repository[A, ID]) endSpan(span trace.Span, intent Intent, err error) {
	if intent != "" {
		span.SetAttributes(attribute.String("persistence.intent", string(intent)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.Classify(err)))
	}
	span.End()
}

func (r *Repository[A, ID]) logIntent(ctx context.Context, id ID, intent Intent) {
	logger.FromContext(ctx).Debug("aggregate reconciled",
		zap.String("aggregate", r.name),
		zap.Any("id", id),
		zap.String("intent", string(intent)),
	)
}

func (r *Repository[A, ID]) logFailure(ctx context.Context, msg string, id ID, err error) {
	logger.FromContext(ctx).Warn(msg,
		zap.String("aggregate", r.name),
		zap.Any("id", id),
		zap.String("error_code", string(apperrors.Classify(err))),
		zap.Error(err),
	)
}

func isNilAggregate(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

var _ shared.Repository[shared.Aggregate[string], string] = (*Repository[shared.Aggregate[string], string])(nil)
