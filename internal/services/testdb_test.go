package services_test

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/repos"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// each in-memory connection is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type env struct {
	db        *sqlx.DB
	users     *repos.UserRepo
	factories *repos.FactoryRepo
	waste     *repos.WasteRepo
	designRep *repos.DesignRepo
	orderRep  *repos.OrderRepo

	auth     *services.AuthService
	notify   *services.NotificationService
	capacity *services.CapacityService
	ledger   *services.WasteService
	designs  *services.DesignService
	pricing  *services.PricingService
	orders   *services.OrderService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testDB(t)
	e := &env{
		db:        db,
		users:     repos.NewUserRepo(db),
		factories: repos.NewFactoryRepo(db),
		waste:     repos.NewWasteRepo(db),
		designRep: repos.NewDesignRepo(db),
		orderRep:  repos.NewOrderRepo(db),
	}
	e.notify = services.NewNotificationService(repos.NewNotificationRepo(db))
	e.auth = services.NewAuthService(db, e.users, e.notify)
	e.capacity = services.NewCapacityService(db, e.factories, e.waste)
	e.ledger = services.NewWasteService(db, e.waste, e.capacity, e.notify)
	e.designs = services.NewDesignService(db, e.designRep, e.users, e.waste)
	e.pricing = services.NewPricingService(e.designRep)
	e.orders = services.NewOrderService(db, e.orderRep, e.designRep, e.ledger, e.notify)
	return e
}
