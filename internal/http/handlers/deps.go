package handlers

import (
	"github.com/jmoiron/sqlx"

	"github.com/parvezdia/textile-waste-management/internal/repos"
	"github.com/parvezdia/textile-waste-management/internal/services"
)

type Deps struct {
	AuthHandler         *AuthHandler
	WasteHandler        *WasteHandler
	DesignHandler       *DesignHandler
	OrderHandler        *OrderHandler
	AdminHandler        *AdminHandler
	NotificationHandler *NotificationHandler

	Auth *services.AuthService
}

func NewDeps(db *sqlx.DB) *Deps {
	userRepo := repos.NewUserRepo(db)
	factoryRepo := repos.NewFactoryRepo(db)
	wasteRepo := repos.NewWasteRepo(db)
	designRepo := repos.NewDesignRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	notifRepo := repos.NewNotificationRepo(db)

	notifSvc := services.NewNotificationService(notifRepo)
	authSvc := services.NewAuthService(db, userRepo, notifSvc)
	capacitySvc := services.NewCapacityService(db, factoryRepo, wasteRepo)
	ledgerSvc := services.NewWasteService(db, wasteRepo, capacitySvc, notifSvc)
	scoreSvc := services.NewScoreService(wasteRepo)
	designSvc := services.NewDesignService(db, designRepo, userRepo, wasteRepo)
	pricingSvc := services.NewPricingService(designRepo)
	orderSvc := services.NewOrderService(db, orderRepo, designRepo, ledgerSvc, notifSvc)

	return &Deps{
		AuthHandler:         &AuthHandler{Auth: authSvc},
		WasteHandler:        &WasteHandler{Ledger: ledgerSvc, Capacity: capacitySvc, Score: scoreSvc, Factories: factoryRepo},
		DesignHandler:       &DesignHandler{Designs: designSvc, Pricing: pricingSvc},
		OrderHandler:        &OrderHandler{Orders: orderSvc},
		AdminHandler:        &AdminHandler{Ledger: ledgerSvc, Orders: orderSvc, Auth: authSvc},
		NotificationHandler: &NotificationHandler{Notify: notifSvc},
		Auth:                authSvc,
	}
}
