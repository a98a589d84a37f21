package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/homefix-app/platform_be_homefix/internal/config"
	"github.com/homefix-app/platform_be_homefix/internal/db"
	"github.com/homefix-app/platform_be_homefix/internal/handlers"
	"github.com/homefix-app/platform_be_homefix/internal/lifecycle"
	"github.com/homefix-app/platform_be_homefix/internal/matching"
	"github.com/homefix-app/platform_be_homefix/internal/messaging"
	"github.com/homefix-app/platform_be_homefix/internal/middleware"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
	"github.com/homefix-app/platform_be_homefix/internal/services/email"
	"github.com/homefix-app/platform_be_homefix/internal/services/payment"
	"github.com/homefix-app/platform_be_homefix/internal/store"
	"github.com/homefix-app/platform_be_homefix/internal/tasks"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := store.Migrate(gdb); err != nil {
		log.Fatal(err)
	}
	st := store.NewGorm(gdb)

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}
	log.Println("Redis connected")

	ctx := context.Background()

	hub := realtime.NewHub()
	notifier := realtime.NewNotifier(hub, st, rdb)
	go notifier.RunBridge(ctx)

	// Completion mail rides the asynq queue; the worker drains it to SMTP.
	asynqClient := tasks.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	defer asynqClient.Close()
	mailQueue := tasks.NewQueue(asynqClient)
	emailProcessor := tasks.NewProcessor(email.NewSender(cfg.SMTP))
	go func() {
		if err := tasks.Run(cfg.RedisAddr, cfg.RedisPassword, emailProcessor); err != nil {
			log.Fatal("asynq worker:", err)
		}
	}()

	matcher := matching.New(st, cfg.Matching)
	controller := lifecycle.NewController(st, matcher, notifier, mailQueue)
	controller.StartUnmatchedSweeper(ctx, time.Hour)

	msgSvc := messaging.NewService(st, notifier)
	payProc := payment.New(cfg.Payment)

	authH := handlers.NewAuthHandler(st, cfg.JWTSecret, cfg.JWTExpiresMin)
	tradeH := handlers.NewTradeHandler(st)
	jobH := handlers.NewJobHandler(st, controller)
	quoteH := handlers.NewQuoteHandler(st, controller)
	contractorH := handlers.NewContractorHandler(st)
	messageH := handlers.NewMessageHandler(msgSvc)
	paymentH := handlers.NewPaymentHandler(st, controller, payProc)
	reviewH := handlers.NewReviewHandler(st, controller)
	adminH := handlers.NewAdminHandler(st, controller)
	wsH := handlers.NewWSHandler(hub, cfg.JWTSecret, cfg.WSAuthTimeout)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/trades", tradeH.List)
	api.Get("/users/:id/reviews", reviewH.ListForUser)
	api.Post("/payments/callback", paymentH.HandleCallback)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", authH.Me)

	// jobs
	protected.Post("/jobs", middleware.RequireRoles("homeowner"), jobH.Create)
	protected.Get("/jobs", jobH.List)
	protected.Get("/jobs/:id", jobH.Get)
	protected.Post("/jobs/:id/cancel", jobH.Cancel)
	protected.Post("/jobs/:id/schedule", jobH.Schedule)
	protected.Post("/jobs/:id/start",
		middleware.RequireRoles("contractor"), jobH.Start)
	protected.Post("/jobs/:id/completion/request",
		middleware.RequireRoles("contractor"), jobH.RequestCompletion)
	protected.Post("/jobs/:id/completion/confirm",
		middleware.RequireRoles("homeowner"), jobH.ConfirmCompletion)

	// quotes
	protected.Post("/jobs/:id/quotes",
		middleware.RequireRoles("contractor"), quoteH.Submit)
	protected.Get("/jobs/:id/quotes", quoteH.ListForJob)
	protected.Post("/quotes/:id/accept",
		middleware.RequireRoles("homeowner"), quoteH.Accept)
	protected.Post("/quotes/:id/reject",
		middleware.RequireRoles("homeowner"), quoteH.Reject)

	// messaging
	protected.Post("/messages", messageH.Send)
	protected.Patch("/messages/:id/read", messageH.MarkRead)
	protected.Get("/jobs/:id/messages", messageH.Thread)
	protected.Patch("/jobs/:id/messages/read", messageH.MarkThreadRead)
	protected.Get("/conversations", messageH.Conversations)
	protected.Get("/conversations/unread-count", messageH.UnreadCount)

	// reviews
	protected.Post("/jobs/:id/reviews", reviewH.Submit)

	// payments
	protected.Post("/payments/charge",
		middleware.RequireRoles("homeowner"), paymentH.CreateCharge)

	contractorH.Routes(protected, middleware.RequireRoles("contractor"))
	adminH.Routes(protected, middleware.RequireRoles("admin"))
	protected.Post("/admin/trades", middleware.RequireRoles("admin"), tradeH.Create)

	// WebSocket endpoint; authentication happens in-band via the auth frame.
	app.Get("/ws", websocket.New(wsH.Handle))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
