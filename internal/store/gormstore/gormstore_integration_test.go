//go:build integration

package gormstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"labstock-backend/internal/database"
	"labstock-backend/internal/history"
	"labstock-backend/internal/ledger"
	"labstock-backend/internal/logging"
	"labstock-backend/internal/models"
	"labstock-backend/internal/store"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type StoreIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	store     *Store
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := postgres.Run(s.ctx, "postgres:16-alpine",
		postgres.WithDatabase("labstock"),
		postgres.WithUsername("labstock"),
		postgres.WithPassword("labstock"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := database.Open(dsn, logging.Discard())
	s.Require().NoError(err)
	s.store = New(db)
}

func (s *StoreIntegrationSuite) TearDownSuite() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
	if s.container != nil {
		s.NoError(testcontainers.TerminateContainer(s.container))
	}
}

func (s *StoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.store.db.Exec("TRUNCATE history, products, users RESTART IDENTITY CASCADE").Error)
}

func (s *StoreIntegrationSuite) ledger() *ledger.Ledger {
	return ledger.New(s.store, history.New(s.store, time.UTC), logging.Discard())
}

func (s *StoreIntegrationSuite) TestCatalogAndStock() {
	p, err := s.store.AddProduct(s.ctx, "swab", "Cotton Swabs", "box", 3)
	s.Require().NoError(err)

	_, err = s.store.AddProduct(s.ctx, "swab", "Again", "box", 1)
	s.ErrorIs(err, store.ErrDuplicateCode)

	got, err := s.store.AdjustStock(s.ctx, p.ID, 0, -1)
	s.Require().NoError(err)
	s.Equal(2, got.CurrentStock)
	s.Equal(int64(1), got.Version)

	_, err = s.store.SetStock(s.ctx, p.ID, 0, 10)
	s.ErrorIs(err, store.ErrConcurrentUpdate)

	got, err = s.store.SetStock(s.ctx, p.ID, 1, 10)
	s.Require().NoError(err)
	s.Equal(10, got.CurrentStock)

	_, err = s.store.FindProductByCode(s.ctx, "zzz")
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.AdjustStock(s.ctx, 999, 0, 1)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *StoreIntegrationSuite) TestConcurrentConsumesDoNotLoseUpdates() {
	p, err := s.store.AddProduct(s.ctx, "tips", "Pipette Tips", "rack", 5)
	s.Require().NoError(err)
	l := s.ledger()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Consume(s.ctx, p.ID, "Aoi")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrInsufficientStock):
				refused++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(5, ok)
	s.Equal(3, refused)

	got, err := s.store.FindProductByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(0, got.CurrentStock)

	n, err := s.store.CountHistory(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(5), n)
}

func (s *StoreIntegrationSuite) TestAtomicallyRollsBack() {
	p, err := s.store.AddProduct(s.ctx, "gloves", "Nitrile Gloves", "pack", 2)
	s.Require().NoError(err)
	boom := errors.New("boom")

	err = s.store.Atomically(s.ctx, func(tx store.Store) error {
		if _, err := tx.AdjustStock(s.ctx, p.ID, p.Version, 5); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.store.FindProductByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(2, got.CurrentStock)
}

func (s *StoreIntegrationSuite) TestHistoryAndUsers() {
	p, err := s.store.AddProduct(s.ctx, "swab", "Cotton Swabs", "box", 3)
	s.Require().NoError(err)
	pid := p.ID

	s.Require().NoError(s.store.AppendHistory(s.ctx, &models.HistoryEntry{
		Sequence: 1, ProductID: &pid, UserName: "Aoi", ChangeType: models.ChangeUse, Quantity: 1, Timestamp: "2026-04-01 09:00:00",
	}))
	s.Require().NoError(s.store.AppendHistory(s.ctx, &models.HistoryEntry{
		Sequence: 2, MiscItemName: "tape", UserName: "Ren", ChangeType: models.ChangeMiscUse, Quantity: 2, Timestamp: "2026-04-01 09:00:00",
	}))

	entries, err := s.store.ListHistory(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(2), entries[0].Sequence)

	u := &models.User{Name: "Aoi", Email: "aoi@lab.example", PasswordHash: "hash", Role: models.RoleMember}
	s.Require().NoError(s.store.AddUser(s.ctx, u))
	s.NotZero(u.ID)
	s.ErrorIs(s.store.AddUser(s.ctx, &models.User{Name: "Aoi", Email: "aoi@lab.example", PasswordHash: "x", Role: models.RoleMember}), store.ErrDuplicateEmail)

	found, err := s.store.FindUserByEmail(s.ctx, "aoi@lab.example")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	suite.Run(t, new(StoreIntegrationSuite))
}

func (s *StoreIntegrationSuite) TestMigrateAddsVersionColumn() {
	m := s.store.db.Migrator()
	s.Require().NoError(m.DropColumn(&models.Product{}, "Version"))
	s.Require().False(m.HasColumn(&models.Product{}, "Version"))

	s.Require().NoError(database.Migrate(s.store.db))
	s.True(m.HasColumn(&models.Product{}, "Version"))

	p, err := s.store.AddProduct(s.ctx, "swab", "Cotton Swabs", "box", 1)
	s.Require().NoError(err)
	s.Equal(int64(0), p.Version)
}
