package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// OrderRepositoryIntegrationTestSuite provides integration tests for OrderRepository
// using PostgreSQL containers to verify database persistence behavior.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders").Error)
	suite.repository = orderrepo.NewGormOrderRepository(suite.db)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) createTestOrder() *order.Order {
	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), kernel.NewUUID(), 3100, "Lenina 5, apt 12")
	suite.Require().NoError(err)
	return o
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_PersistsOrder() {
	ctx := context.Background()
	o := suite.createTestOrder()

	suite.Require().NoError(suite.repository.Add(ctx, o))

	var count int64
	suite.Require().NoError(suite.db.Model(&orderrepo.OrderDTO{}).Count(&count).Error)
	suite.EqualValues(1, count)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_Duplicate_ReturnsConflict() {
	ctx := context.Background()
	o := suite.createTestOrder()

	suite.Require().NoError(suite.repository.Add(ctx, o))
	suite.ErrorIs(suite.repository.Add(ctx, o), errs.ErrObjectConflict)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_RoundTrip() {
	ctx := context.Background()
	o := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	suite.Equal(o.ID(), got.ID())
	suite.Equal(o.CustomerID(), got.CustomerID())
	suite.Equal(o.RestaurantID(), got.RestaurantID())
	suite.Equal(o.TotalAmount(), got.TotalAmount())
	suite.Equal(o.DeliveryAddress(), got.DeliveryAddress())
	suite.Equal(order.Pending, got.Status())
	suite.Equal(order.WorkflowInitiated, got.Workflow().Status)
	suite.Equal(0, got.Workflow().Progress)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())
	suite.ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateWorkflow_PersistsMetadata() {
	ctx := context.Background()
	o := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	md, err := order.Metadata{RunID: "run-42", StartedAt: &started}.WithExtra("source", "launcher")
	suite.Require().NoError(err)
	suite.Require().NoError(o.StartWorkflow(md))
	suite.Require().NoError(o.RecordProgress(60, order.Metadata{
		RunID:      "run-42",
		LastStage:  "restaurant_notify",
		RetryCount: 1,
		StartedAt:  &started,
		Extra:      md.Extra,
	}))

	suite.Require().NoError(suite.repository.UpdateWorkflow(ctx, o.ID(), o.Workflow()))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	wf := got.Workflow()
	suite.Equal(order.WorkflowInProgress, wf.Status)
	suite.Equal(60, wf.Progress)
	suite.Equal("run-42", wf.Metadata.RunID)
	suite.Equal("restaurant_notify", wf.Metadata.LastStage)
	suite.Equal(1, wf.Metadata.RetryCount)
	suite.Require().NotNil(wf.Metadata.StartedAt)
	suite.True(started.Equal(*wf.Metadata.StartedAt))
	suite.Equal("launcher", wf.Metadata.Extra["source"])
	suite.Equal(order.Pending, got.Status(), "status column must be untouched")
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdateStatus() {
	ctx := context.Background()
	o := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(suite.repository.UpdateStatus(ctx, o.ID(), order.Cancelled))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Cancelled, got.Status())
	suite.Equal(order.WorkflowInitiated, got.Workflow().Status)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_NonExistentOrder_ReturnsNotFound() {
	ctx := context.Background()

	suite.ErrorIs(suite.repository.Update(ctx, suite.createTestOrder()), errs.ErrObjectNotFound)
	suite.ErrorIs(suite.repository.UpdateStatus(ctx, kernel.NewUUID(), order.Confirmed), errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestUpdate_WritesAllColumns() {
	ctx := context.Background()
	o := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(o.Cancel())
	suite.Require().NoError(suite.repository.Update(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.Cancelled, got.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGetAwaitingWorkflow_OldestFirst() {
	ctx := context.Background()

	first := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, first))
	started := suite.createTestOrder()
	suite.Require().NoError(started.StartWorkflow(order.Metadata{}))
	suite.Require().NoError(suite.repository.Add(ctx, started))
	second := suite.createTestOrder()
	suite.Require().NoError(suite.repository.Add(ctx, second))

	orders, err := suite.repository.GetAwaitingWorkflow(ctx, 10)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Equal(first.ID(), orders[0].ID())
	suite.Equal(second.ID(), orders[1].ID())

	limited, err := suite.repository.GetAwaitingWorkflow(ctx, 1)
	suite.Require().NoError(err)
	suite.Len(limited, 1)
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
