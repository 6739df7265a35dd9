package router

import (
	"net/http"

	feesvc "caskmarket-backend/internal/application/fees"
	healthsvc "caskmarket-backend/internal/application/health"
	"caskmarket-backend/internal/application/ledger"
	lesvc "caskmarket-backend/internal/application/listingevents"
	listsvc "caskmarket-backend/internal/application/listings"
	ordersvc "caskmarket-backend/internal/application/orders"
	"caskmarket-backend/internal/application/policies"
	ressvc "caskmarket-backend/internal/application/reservations"
	"caskmarket-backend/internal/config"
	"caskmarket-backend/internal/constants"
	"caskmarket-backend/internal/infrastructure/database"
	"caskmarket-backend/internal/infrastructure/events"
	authhandler "caskmarket-backend/internal/interfaces/handlers/auth"
	feehandler "caskmarket-backend/internal/interfaces/handlers/fees"
	healthhandler "caskmarket-backend/internal/interfaces/handlers/health"
	lehandler "caskmarket-backend/internal/interfaces/handlers/listingevents"
	listhandler "caskmarket-backend/internal/interfaces/handlers/listings"
	orderhandler "caskmarket-backend/internal/interfaces/handlers/orders"
	payhandler "caskmarket-backend/internal/interfaces/handlers/payments"
	reshandler "caskmarket-backend/internal/interfaces/handlers/reservations"
	"caskmarket-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Resources are the long-lived connections opened by CreateApp.
type Resources struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Events events.Publisher
}

// Close releases every connection, logging failures.
func (r *Resources) Close() {
	if p, ok := r.Events.(*events.KafkaPublisher); ok {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka writer close failed")
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func CreateApp(cfg *config.Config) (*fiber.App, *Resources, error) {
	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{RedisURL: cfg.RedisURL})
	if err != nil {
		return nil, nil, err
	}
	res := &Resources{Redis: rdb, Events: events.Nop{}}
	if len(cfg.KafkaBrokers) > 0 {
		res.Events = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			res.Close()
			return nil, nil, err
		}
		res.DB = db
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.NewErrorHandler(rdb),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	probes := map[string]healthsvc.Probe{}
	if len(cfg.KafkaBrokers) > 0 {
		probes["kafka"] = healthsvc.KafkaProbe(cfg.KafkaBrokers, cfg.ProbeTimeout)
	}
	if cfg.StripeHealthURL != "" {
		probes["stripe"] = healthsvc.HTTPProbe(cfg.StripeHealthURL, cfg.ProbeTimeout)
	}
	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		Probes:         probes,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if res.DB != nil {
		hh.DB = &gormDBPinger{db: res.DB}
	}
	app.Get("/health/json", hh.JSON)
	app.Get("/health/reset", hh.Reset)
	app.Get("/health/errors", hh.Errors)

	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	ah := &authhandler.Handlers{Rdb: rdb}
	app.Get("/api/v1/auth/me", ah.Me)
	app.Delete("/api/v1/auth/logout", ah.Logout)
	app.Delete("/api/v1/auth/sessions", ah.LogoutAll)

	if res.DB == nil {
		log.Warn().Msg("no database configured; only health routes are mounted")
		return app, res, nil
	}
	Mount(app, res.DB, res.Events, cfg)
	return app, res, nil
}

// Mount registers the marketplace API on app.
func Mount(app *fiber.App, db *gorm.DB, publisher events.Publisher, cfg *config.Config) {
	authz := policies.RoleAuthorizer{}
	feeService := &feesvc.Service{DB: db}
	orderService := &ordersvc.Service{
		DB:     db,
		Ledger: &ledger.Service{DB: db},
		Fees:   feeService,
		Authz:  authz,
		Events: publisher,
	}

	// Stripe posts without a session; the signature is the credential.
	wh := &payhandler.WebhookHandler{DB: db, Orders: orderService, WebhookSecret: cfg.StripeWebhookSecret}
	app.Post("/api/v1/stripe/webhook", wh.HandleWebhook)

	api := app.Group("/api/v1", middleware.RequireAuth())
	admin := api.Group("/admin")

	// Listings
	lh := &listhandler.Handlers{Service: &listsvc.Service{DB: db, Authz: authz}}
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: db, Authz: authz}}
	api.Post("/listings", middleware.AuthorizePermission(constants.CreateListing), lh.CreateListing)
	api.Get("/listings/live", lh.GetLiveListings)
	api.Get("/listings/mine", middleware.AuthorizePermission(constants.EditListing), lh.GetSellerListings)
	api.Get("/listings/:id", lh.GetListingByID)
	api.Patch("/listings/:id/visibility", middleware.AuthorizePermission(constants.EditListing), lh.SetVisibility)
	api.Get("/listings/:id/events", leh.GetListingEvents)
	admin.Get("/listings", middleware.AuthorizePermission(constants.ModerateListing), lh.GetModerationQueue)
	admin.Post("/listings/:id/approve", middleware.AuthorizePermission(constants.ModerateListing), lh.ApproveListing)
	admin.Post("/listings/:id/reject", middleware.AuthorizePermission(constants.ModerateListing), lh.RejectListing)

	// Reservations
	rh := &reshandler.Handlers{Service: &ressvc.Service{DB: db, Authz: authz, Window: cfg.ReservationWindow}}
	oh := &orderhandler.Handlers{Service: orderService}
	api.Post("/reservations", middleware.AuthorizePermission(constants.CreateReservation), rh.CreateReservation)
	api.Get("/reservations", rh.ListReservations)
	api.Get("/reservations/:id", rh.GetReservation)
	api.Post("/reservations/:id/cancel", rh.CancelReservation)
	api.Post("/reservations/:id/order", middleware.AuthorizePermission(constants.CreateOrder), oh.CreateFromReservation)
	admin.Get("/reservations", middleware.AuthorizePermission(constants.ListAllReservations), rh.ListAllReservations)
	admin.Post("/reservations/bulk-confirm", middleware.AuthorizePermission(constants.ConfirmReservation), rh.BulkConfirm)
	admin.Post("/reservations/:id/confirm", middleware.AuthorizePermission(constants.ConfirmReservation), rh.ConfirmReservation)
	admin.Post("/reservations/:id/extend", middleware.AuthorizePermission(constants.ExtendReservation), rh.ExtendReservation)

	// Orders
	ph := &payhandler.Handlers{Orders: orderService, Intents: &payhandler.StripeIntentCreator{SecretKey: cfg.StripeSecretKey}}
	api.Post("/orders/checkout", middleware.AuthorizePermission(constants.CreateOrder), oh.Checkout)
	api.Get("/orders", oh.ListOrders)
	api.Get("/orders/:id", oh.GetOrder)
	api.Get("/orders/:id/history", oh.GetHistory)
	api.Get("/orders/:id/ledger", middleware.AuthorizePermission(constants.ViewLedger), oh.GetLedger)
	api.Post("/orders/:id/pay", middleware.AuthorizePermission(constants.PayOrder), ph.PayOrder)
	api.Post("/orders/:id/confirm-receipt", middleware.AuthorizePermission(constants.ConfirmReceipt), oh.ConfirmReceipt())
	admin.Get("/orders", middleware.AuthorizePermission(constants.ListAllOrders), oh.ListAllOrders)
	admin.Post("/orders/:id/confirm-payment", middleware.AuthorizePermission(constants.ConfirmPayment), oh.ConfirmPayment())
	admin.Post("/orders/:id/dispatch", middleware.AuthorizePermission(constants.DispatchOrder), oh.Dispatch())
	admin.Post("/orders/:id/deliver", middleware.AuthorizePermission(constants.DispatchOrder), oh.Deliver())
	admin.Post("/orders/:id/release", middleware.AuthorizePermission(constants.ReleaseOrder), oh.Release())
	admin.Post("/orders/:id/refund", middleware.AuthorizePermission(constants.RefundOrder), oh.Refund())

	// Fees
	fh := &feehandler.Handlers{Service: feeService}
	admin.Get("/fees", middleware.AuthorizePermission(constants.ManageFees), fh.ListFees)
	admin.Put("/fees", middleware.AuthorizePermission(constants.ManageFees), fh.UpsertFee)
}

// Handler adapts the app to net/http for serverless runtimes. The request URI
// is rebuilt from the URL because rewrites leave the original path in RequestURI.
func Handler(app *fiber.App) http.Handler {
	h := adaptor.FiberApp(app)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.RequestURI = r.URL.String()
		h(w, r)
	})
}
