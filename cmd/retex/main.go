package main

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/parvezdia/textile-waste-management/internal/config"
	"github.com/parvezdia/textile-waste-management/internal/domain"
	"github.com/parvezdia/textile-waste-management/internal/http/handlers"
	applog "github.com/parvezdia/textile-waste-management/internal/log"
	"github.com/parvezdia/textile-waste-management/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	deps := handlers.NewDeps(db)
	auth := deps.Auth

	// Auth (login throttled)
	app.Post("/register", deps.AuthHandler.Register)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	}), deps.AuthHandler.Login)
	app.Post("/logout", deps.AuthHandler.Logout)

	api := app.Group("/api/v1")
	api.Get("/me", handlers.RequireUser(auth), deps.AuthHandler.Me)

	// Catalog (public)
	api.Get("/designs", deps.DesignHandler.ListPublished)
	api.Get("/designs/:id", deps.DesignHandler.Get)
	api.Get("/designs/:id/options", deps.DesignHandler.Options)
	api.Get("/designs/:id/fulfillable", deps.DesignHandler.Fulfillable)
	api.Post("/designs/:id/quote", deps.DesignHandler.Quote)

	// Factory: waste intake and capacity
	factory := api.Group("/waste", handlers.RequireRole(auth, domain.RoleFactory))
	factory.Post("/", deps.WasteHandler.Submit)
	factory.Get("/", deps.WasteHandler.ListMine)
	factory.Get("/:id", deps.WasteHandler.Get)
	factory.Get("/:id/history", deps.WasteHandler.History)
	factory.Post("/:id/reserve", deps.WasteHandler.Reserve)

	capacity := api.Group("/capacity", handlers.RequireRole(auth, domain.RoleFactory))
	capacity.Get("/", deps.WasteHandler.CapacityStatus)
	capacity.Get("/recommended", deps.WasteHandler.CapacityRecommended)
	capacity.Put("/", deps.WasteHandler.SetCapacity)
	capacity.Put("/certifications", deps.WasteHandler.SetCertifications)

	// Designer: designs, materials, options
	designer := api.Group("/studio", handlers.RequireRole(auth, domain.RoleDesigner))
	designer.Post("/designs", deps.DesignHandler.Create)
	designer.Get("/designs", deps.DesignHandler.ListMine)
	designer.Post("/designs/:id/status", deps.DesignHandler.SetStatus)
	designer.Post("/designs/:id/materials", deps.DesignHandler.BindMaterial)
	designer.Delete("/designs/:id/materials/:lotID", deps.DesignHandler.UnbindMaterial)
	designer.Get("/designs/:id/materials", deps.DesignHandler.Materials)
	designer.Post("/designs/:id/options", deps.DesignHandler.AddOption)
	designer.Delete("/designs/:id/options/:optID", deps.DesignHandler.RemoveOption)

	// Buyer: orders
	orders := api.Group("/orders", handlers.RequireUser(auth))
	orders.Post("/", handlers.RequireRole(auth, domain.RoleBuyer), deps.OrderHandler.Place)
	orders.Get("/", handlers.RequireRole(auth, domain.RoleBuyer), deps.OrderHandler.ListMine)
	orders.Get("/:id", deps.OrderHandler.Get)
	orders.Post("/:id/cancel", deps.OrderHandler.Cancel)

	// Notifications
	notif := api.Group("/notifications", handlers.RequireUser(auth))
	notif.Get("/", deps.NotificationHandler.List)
	notif.Post("/:id/read", deps.NotificationHandler.MarkRead)

	// Admin
	admin := api.Group("/admin", handlers.RequireRole(auth, domain.RoleAdmin))
	admin.Post("/waste/:id/approve", deps.AdminHandler.ApproveWaste)
	admin.Post("/waste/:id/reject", deps.AdminHandler.RejectWaste)
	admin.Post("/waste/sweep-expired", deps.AdminHandler.SweepExpired)
	admin.Post("/waste/:id/rescore", deps.WasteHandler.Rescore)
	admin.Get("/orders", deps.AdminHandler.ListOrders)
	admin.Post("/orders/:id/status", deps.AdminHandler.TransitionOrder)
	admin.Post("/designers/:id/approve", deps.AdminHandler.ApproveDesigner)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
