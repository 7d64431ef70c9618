package gormstore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"

	"dddkit/config"
	"dddkit/domain/customer"
	"dddkit/domain/order"
	"dddkit/domain/shared"
	"dddkit/infrastructure/persistence"
	"dddkit/infrastructure/persistence/gormstore"
	"dddkit/infrastructure/persistence/gormstore/po"
	"dddkit/infrastructure/persistence/retry"
	"dddkit/infrastructure/persistence/specification"
)

var epoch = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gormstore.Connect(config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   filepath.Join(t.TempDir(), "store.db"),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, gormstore.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type session struct {
	uow       *gormstore.UnitOfWork
	orders    *persistence.Repository[*order.Order, string]
	customers *persistence.Repository[*customer.Customer, int64]
}

func newSession(t *testing.T, db *gorm.DB, opts ...gormstore.Option) session {
	t.Helper()
	opts = append([]gormstore.Option{gormstore.WithClock(func() time.Time { return epoch })}, opts...)
	uow := gormstore.NewUnitOfWork(db, opts...)

	orders, err := gormstore.NewOrderStore(uow)
	require.NoError(t, err)
	customers, err := gormstore.NewCustomerStore(uow)
	require.NoError(t, err)

	return session{
		uow:       uow,
		orders:    persistence.NewRepository[*order.Order, string](orders, persistence.WithClock(func() time.Time { return epoch })),
		customers: persistence.NewRepository[*customer.Customer, int64](customers),
	}
}

func newOrder(t *testing.T, customerID int64) *order.Order {
	t.Helper()
	o, err := order.NewOrder(customerID, "CNY", []order.LineRequest{
		{ProductID: "p-1", ProductName: "Keyboard", Quantity: 2, UnitPrice: shared.NewMoney(1500, "CNY")},
	})
	require.NoError(t, err)
	return o
}

func TestOrder_InsertAndLoad(t *testing.T) {
	db := openDB(t)
	ctx := persistence.ContextWithActor(context.Background(), "alice")

	s := newSession(t, db)
	o := newOrder(t, 42)
	intent, err := s.orders.Reconcile(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentInsert, intent)

	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, epoch, o.CreatedAt())
	assert.Equal(t, "alice", o.CreatedBy())

	loaded, found, err := newSession(t, db).orders.GetByID(ctx, o.ID())
	require.NoError(t, err)
	require.True(t, found)
	assert.NotSame(t, o, loaded)
	assert.Equal(t, int64(42), loaded.CustomerID())
	assert.Equal(t, o.Total(), loaded.Total())
	assert.Equal(t, order.StatusPending, loaded.Status())
	assert.Equal(t, "alice", loaded.CreatedBy())
	require.Len(t, loaded.Lines(), 1)
	assert.Equal(t, "Keyboard", loaded.Lines()[0].ProductName())
	assert.Empty(t, loaded.DomainEvents())
}

func TestOrder_GetByIDMissing(t *testing.T) {
	s := newSession(t, openDB(t))

	_, found, err := s.orders.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.orders.GetRequired(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrder_AttachedChangesAreDetected(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	seed := newSession(t, db)
	o := newOrder(t, 1)
	require.NoError(t, seed.orders.Save(ctx, o))
	_, err := seed.uow.Commit(ctx)
	require.NoError(t, err)

	s := newSession(t, db)
	loaded, err := s.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)

	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing changed")

	require.NoError(t, loaded.Confirm())
	intent, err := s.orders.Reconcile(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentNone, intent)

	n, err = s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, loaded.Version())

	var row po.OrderPO
	require.NoError(t, db.First(&row, "id = ?", o.ID()).Error)
	assert.Equal(t, order.StatusConfirmed.ID(), row.StatusID)
	assert.Equal(t, 1, row.Version)
	require.NotNil(t, row.ModifiedAt)
}

func TestOrder_DetachedCopyIsUpdated(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	seed := newSession(t, db)
	o := newOrder(t, 1)
	require.NoError(t, seed.orders.Save(ctx, o))
	_, err := seed.uow.Commit(ctx)
	require.NoError(t, err)

	// o is detached from a fresh unit of work; the existence check finds its row
	s := newSession(t, db)
	require.NoError(t, o.Confirm())
	intent, err := s.orders.Reconcile(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentUpdate, intent)

	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, o.Version())

	intent, err = s.orders.Reconcile(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentNone, intent, "attached after commit")

	n, err = s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrder_VersionConflict(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	seed := newSession(t, db)
	o := newOrder(t, 1)
	require.NoError(t, seed.orders.Save(ctx, o))
	_, err := seed.uow.Commit(ctx)
	require.NoError(t, err)

	first, second := newSession(t, db), newSession(t, db)
	a, err := first.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)
	b, err := second.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)

	require.NoError(t, a.Confirm())
	_, err = first.uow.Commit(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Cancel("changed my mind"))
	_, err = second.uow.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	var conflict *shared.ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Zero(t, b.Version(), "version is not bumped on failure")
	assert.Len(t, b.DomainEvents(), 1, "events stay buffered on failure")
	assert.Nil(t, b.ModifiedAt(), "audit fields are not stamped on failure")
	assert.Empty(t, b.ModifiedBy())
}

func TestOrder_DetachedCopyReplacesLoadedInstance(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	seed := newSession(t, db)
	o := newOrder(t, 1)
	require.NoError(t, seed.orders.Save(ctx, o))
	_, err := seed.uow.Commit(ctx)
	require.NoError(t, err)

	s := newSession(t, db)
	loaded, err := s.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)
	require.NotSame(t, o, loaded)

	require.NoError(t, o.Confirm())
	intent, err := s.orders.Reconcile(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentUpdate, intent)
	_, err = s.uow.Commit(ctx)
	require.NoError(t, err)

	current, err := s.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)
	assert.Same(t, o, current, "one instance per row")
	assert.Equal(t, order.StatusConfirmed, current.Status())
	assert.Equal(t, 1, current.Version())

	require.NoError(t, current.Cancel("changed my mind"))
	_, err = s.uow.Commit(ctx)
	require.NoError(t, err, "no conflict with the unit of work's own write")

	var row po.OrderPO
	require.NoError(t, db.First(&row, "id = ?", o.ID()).Error)
	assert.Equal(t, order.StatusCancelled.ID(), row.StatusID)
	assert.Equal(t, 2, row.Version)
}

func TestCustomer_GeneratedIDIsAssigned(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	s := newSession(t, db)

	c, err := customer.Register("Ada", "ada@example.com")
	require.NoError(t, err)
	require.True(t, c.IsTransient())

	intent, err := s.customers.Reconcile(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentInsert, intent)

	_, err = s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, c.IsTransient())
	assert.Positive(t, c.ID())

	loaded, err := newSession(t, db).customers.GetRequired(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", loaded.Email().Value())
}

func TestCustomer_PhysicalDelete(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	s := newSession(t, db)
	c, err := customer.Register("Ada", "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, s.customers.Save(ctx, c))
	_, err = s.uow.Commit(ctx)
	require.NoError(t, err)

	intent, err := s.customers.Delete(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentDelete, intent)

	_, found, err := s.customers.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.False(t, found, "pending delete hides the aggregate")

	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	require.NoError(t, db.Model(&po.CustomerPO{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrder_SoftDelete(t *testing.T) {
	db := openDB(t)
	ctx := persistence.ContextWithActor(context.Background(), "bob")

	s := newSession(t, db)
	o := newOrder(t, 3)
	require.NoError(t, s.orders.Save(ctx, o))
	_, err := s.uow.Commit(ctx)
	require.NoError(t, err)

	intent, err := s.orders.Delete(ctx, o)
	require.NoError(t, err)
	assert.Equal(t, persistence.IntentSoftDelete, intent)
	_, err = s.uow.Commit(ctx)
	require.NoError(t, err)

	var row po.OrderPO
	require.NoError(t, db.First(&row, "id = ?", o.ID()).Error)
	assert.True(t, row.Deleted)
	assert.Equal(t, "bob", row.DeletedBy)
	require.NotNil(t, row.DeletedAt)
	assert.True(t, row.DeletedAt.Equal(epoch))

	reader := newSession(t, db)
	loaded, err := reader.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)
	assert.True(t, loaded.IsDeleted())

	history, err := order.HistoryOf(3)
	require.NoError(t, err)
	found, err := reader.orders.Find(ctx, history)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFind_FilterOrderAndPage(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	s := newSession(t, db)
	for customerID := int64(1); customerID <= 30; customerID++ {
		o := newOrder(t, customerID)
		if customerID <= 5 {
			require.NoError(t, o.Confirm())
		}
		require.NoError(t, s.orders.Save(ctx, o))
	}
	_, err := s.uow.Commit(ctx)
	require.NoError(t, err)

	spec, err := shared.BuildSpecification[*order.Order](
		order.InStatus{Statuses: []order.Status{order.StatusPending}},
		func(b *shared.SpecificationBuilder[*order.Order]) error {
			b.ApplyOrderBy(order.SortByCustomer).ApplyNoTracking()
			return b.ApplyPaging(10, 20)
		},
	)
	require.NoError(t, err)

	found, err := newSession(t, db).orders.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, found, 15)
	for i, o := range found {
		assert.Equal(t, int64(16+i), o.CustomerID())
	}

	empty, err := shared.BuildSpecification[*order.Order](nil, func(b *shared.SpecificationBuilder[*order.Order]) error {
		return b.ApplyPaging(0, 0)
	})
	require.NoError(t, err)
	found, err = newSession(t, db).orders.Find(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFind_OpenOrdersNewestFirst(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	var ids []string
	for i := range 4 {
		at := epoch.Add(time.Duration(i) * time.Hour)
		s := newSession(t, db, gormstore.WithClock(func() time.Time { return at }))
		o := newOrder(t, 7)
		if i == 0 {
			require.NoError(t, o.Cancel("duplicate"))
		}
		require.NoError(t, s.orders.Save(ctx, o))
		_, err := s.uow.Commit(ctx)
		require.NoError(t, err)
		ids = append(ids, o.ID())
	}

	spec, err := order.OpenOrdersOf(7, 0, 2)
	require.NoError(t, err)
	found, err := newSession(t, db).orders.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, ids[3], found[0].ID())
	assert.Equal(t, ids[2], found[1].ID())
}

func TestFind_TrackingReturnsAttachedInstances(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	seed := newSession(t, db)
	o := newOrder(t, 5)
	require.NoError(t, seed.orders.Save(ctx, o))
	_, err := seed.uow.Commit(ctx)
	require.NoError(t, err)

	s := newSession(t, db)
	loaded, err := s.orders.GetRequired(ctx, o.ID())
	require.NoError(t, err)

	tracked, err := s.orders.Find(ctx, shared.MatchAll[*order.Order]())
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Same(t, loaded, tracked[0])

	history, err := order.HistoryOf(5)
	require.NoError(t, err)
	untracked, err := s.orders.Find(ctx, history)
	require.NoError(t, err)
	require.Len(t, untracked, 1)
	assert.NotSame(t, loaded, untracked[0])

	// changes to an untracked result are never written
	require.NoError(t, untracked[0].Confirm())
	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFind_Errors(t *testing.T) {
	s := newSession(t, openDB(t))
	ctx := context.Background()

	inMemoryOnly := shared.CriterionFunc[*order.Order](func(context.Context, *order.Order) bool { return true })
	spec, err := shared.BuildSpecification[*order.Order](inMemoryOnly, nil)
	require.NoError(t, err)
	_, err = s.orders.Find(ctx, spec)
	assert.ErrorIs(t, err, specification.ErrUnsupportedCriterion)

	spec, err = shared.BuildSpecification[*order.Order](nil, func(b *shared.SpecificationBuilder[*order.Order]) error {
		b.ApplyOrderBy(shared.OrderKey("nope", func(o *order.Order) string { return o.ID() }))
		return nil
	})
	require.NoError(t, err)
	_, err = s.orders.Find(ctx, spec)
	assert.ErrorIs(t, err, gormstore.ErrUnknownSortField)

	spec, err = shared.BuildSpecification[*order.Order](nil, func(b *shared.SpecificationBuilder[*order.Order]) error {
		b.AddIncludePath("Payments")
		return nil
	})
	require.NoError(t, err)
	_, err = s.orders.Find(ctx, spec)
	assert.ErrorIs(t, err, gormstore.ErrUnknownInclude)

	// the customer store has no translator; an empty filter needs none
	customers, err := s.customers.Find(ctx, shared.MatchAll[*customer.Customer]())
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestCommit_OutboxAndDispatch(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	var (
		mu       sync.Mutex
		received []string
	)
	bus := shared.NewEventBus()
	require.NoError(t, bus.Subscribe(order.EventPlaced, shared.NewFuncHandler("collector", func(_ context.Context, e shared.DomainEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.EventName())
		return nil
	})))

	outbox := gormstore.NewOutboxRepository(db)
	s := newSession(t, db, gormstore.WithOutbox(outbox), gormstore.WithDispatcher(bus))

	o := newOrder(t, 9)
	require.NoError(t, s.orders.Save(ctx, o))
	_, err := s.uow.Commit(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{order.EventPlaced}, received)
	assert.Empty(t, o.DomainEvents())

	pending, err := outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.EventPlaced, pending[0].EventType)
	assert.Equal(t, o.ID(), pending[0].AggregateID)

	data, err := pending[0].ToEventData()
	require.NoError(t, err)
	assert.EqualValues(t, 9, data["customer_id"])
	assert.Equal(t, order.EventPlaced, data["event_name"])
}

func TestCommit_FailureWritesNoOutboxRows(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	outbox := gormstore.NewOutboxRepository(db)

	dup := newSession(t, db, gormstore.WithOutbox(outbox))
	c1, err := customer.Register("Ada", "ada@example.com")
	require.NoError(t, err)
	c2, err := customer.Register("Ada Again", "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, dup.customers.Save(ctx, c1))
	require.NoError(t, dup.customers.Save(ctx, c2))

	_, err = dup.uow.Commit(ctx)
	require.Error(t, err, "unique email")
	assert.True(t, c1.IsTransient())
	assert.Len(t, c1.DomainEvents(), 1)

	count, err := outbox.CountByStatus(ctx, po.EventStatusPending)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommit_ZeroRetryAttemptsStillWrites(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	s := newSession(t, db, gormstore.WithRetryConfig(retry.Config{Enabled: true}))
	o := newOrder(t, 1)
	require.NoError(t, s.orders.Save(ctx, o))

	n, err := s.uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	require.NoError(t, db.Model(&po.OrderPO{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCommit_CancelledContext(t *testing.T) {
	s := newSession(t, openDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.uow.Commit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommit_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	s := newSession(t, openDB(t), gormstore.WithTracer(provider.Tracer("test")))
	ctx := context.Background()

	require.NoError(t, s.orders.Save(ctx, newOrder(t, 1)))
	_, err := s.uow.Commit(ctx)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "UnitOfWork.Commit", spans[0].Name())
	var rows int64
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.rows_affected" {
			rows = attr.Value.AsInt64()
		}
	}
	assert.Equal(t, int64(1), rows)
}
