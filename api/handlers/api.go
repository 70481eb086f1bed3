package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pillapp/pillapp-api/adherence"
	"github.com/pillapp/pillapp-api/api"
	"github.com/pillapp/pillapp-api/api/scheduler"
	"github.com/pillapp/pillapp-api/config"
	"github.com/pillapp/pillapp-api/databases"
	"github.com/pillapp/pillapp-api/messaging"
)

const (
	connectTimeout = 10 * time.Second
	requestTimeout = 30 * time.Second
	feedPath       = "/api/v1/reminders/feed"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router  *mux.Router
	Handler http.Handler
	Config  config.Config

	Users       databases.UserDatabase
	Medications databases.MedicationDatabase
	Treatments  databases.TreatmentDatabase
	Dispatches  databases.DispatchDatabase
	Sender      messaging.Sender
	Service     *adherence.Service
	Guard       *api.Guard
	Hub         *ReminderHub
	Metrics     *api.MetricsCollector
	Scheduler   *scheduler.Scheduler

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.ctx == nil {
		a.ctx, a.cancel = context.WithCancel(context.Background())
	}
	if a.Guard == nil {
		a.Guard = api.NewGuard(a.ctx, &a.Config, a.Users)
	}
	if a.Hub == nil {
		a.Hub = NewReminderHub(a.Config.CORSOrigins)
	}

	if a.Metrics == nil {
		a.Metrics = api.NewMetricsCollector(a.ctx)
	}
	if a.Service == nil {
		a.Service = adherence.NewService(a.Users, a.Medications, a.Treatments)
	}

	u := User{DB: a.Users, Now: time.Now}
	m := Medication{DB: a.Medications}
	t := Treatment{Service: a.Service}
	rem := Reminder{Sender: a.Sender, Hub: a.Hub}
	auth := Auth{Guard: a.Guard}
	metrics := MetricsHandler{Collector: a.Metrics, Ticks: a, Hub: a.Hub}

	r := api.New()
	r.Use(a.Metrics.Middleware)

	// routes registered on r directly are matched before the guarded subrouter,
	// so registration and token issuance stay open
	r.HandleFunc("/api/v1/auth/token", auth.CreateTokenHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users", u.CreateUserHandler).Methods(http.MethodPost)
	r.Handle(feedPath, tokenFromQuery(a.Guard.Middleware(http.HandlerFunc(a.Hub.FeedHandler)))).Methods(http.MethodGet)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(a.Guard.Middleware)

	apiCreate.HandleFunc("/users", u.UsersHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/users/{id}", u.UserHandler).Methods(http.MethodGet)

	apiCreate.HandleFunc("/medications", m.CreateMedicationHandler).Methods(http.MethodPost)
	apiCreate.HandleFunc("/medications", m.MedicationsHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/medications/{id}", m.MedicationHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/medications/{id}", m.UpdateMedicationHandler).Methods(http.MethodPut)
	apiCreate.HandleFunc("/medications/{id}", m.DeleteMedicationHandler).Methods(http.MethodDelete)

	// fixed treatment paths must stay above /treatments/{id}
	apiCreate.HandleFunc("/treatments", t.CreateTreatmentHandler).Methods(http.MethodPost)
	apiCreate.HandleFunc("/treatments", t.TreatmentsHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/treatments/due", t.DueTreatmentsHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/treatments/reset-doses", t.ResetDosesHandler).Methods(http.MethodPost)
	apiCreate.HandleFunc("/treatments/user/{userId}", t.UserTreatmentsHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/treatments/{id}", t.TreatmentHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/treatments/{id}", t.UpdateTreatmentHandler).Methods(http.MethodPut)
	apiCreate.HandleFunc("/treatments/{id}", t.DeleteTreatmentHandler).Methods(http.MethodDelete)
	apiCreate.HandleFunc("/treatments/{id}/status", t.ChangeStatusHandler).Methods(http.MethodPatch)
	apiCreate.HandleFunc("/treatments/{id}/doses", t.MarkDoseHandler).Methods(http.MethodPatch)

	apiCreate.HandleFunc("/reminders/config", rem.ConfigHandler).Methods(http.MethodGet)
	apiCreate.HandleFunc("/reminders/test", rem.TestReminderHandler).Methods(http.MethodPost)

	apiCreate.HandleFunc("/metrics", metrics.GetMetricsHandler).Methods(http.MethodGet)

	r.HandleFunc("/", indexHandler(r)).Methods(http.MethodGet)
	return r
}

// Wrap applies the global middleware chain to h
func (a *App) Wrap(h http.Handler) http.Handler {
	if a.ctx == nil {
		a.ctx, a.cancel = context.WithCancel(context.Background())
	}

	h = api.TimeoutMiddleware(requestTimeout, feedPath)(h)
	if a.Config.RateLimitRPS > 0 {
		limiter := api.NewIPRateLimiter(a.ctx, rate.Limit(a.Config.RateLimitRPS), a.Config.RateLimitBurst)
		h = limiter.Middleware(h)
	}
	h = cors.Handler(cors.Options{
		AllowedOrigins: a.Config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	})(h)
	return api.RequestLogger(h)
}

// Initialize is invoked by main to connect with the database, create the
// router and start the background jobs
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	if err := client.Ping(ctx); err != nil {
		zap.S().Errorw("failed to ping database", "error", err)
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	zap.S().Infow("pillapp-api has connected to the database", "database", a.Config.DatabaseName)

	a.Users = databases.NewUserDatabase(a.dbHelper)
	a.Medications = databases.NewMedicationDatabase(a.dbHelper)
	a.Treatments = databases.NewTreatmentDatabase(a.dbHelper)
	a.Dispatches = databases.NewDispatchDatabase(a.dbHelper)

	indexes := map[string]func(context.Context) error{
		"users":       a.Users.EnsureIndexes,
		"medications": a.Medications.EnsureIndexes,
		"treatments":  a.Treatments.EnsureIndexes,
		"dispatches":  a.Dispatches.EnsureIndexes,
	}
	for name, ensure := range indexes {
		if err := ensure(ctx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	a.Sender = messaging.New(a.Config.Messaging)
	if !a.Sender.IsConfigured() {
		zap.S().Warnw("messaging provider is not configured, reminders will be skipped", "channel", a.Sender.Channel())
	}

	a.Router = a.New()
	a.Handler = a.Wrap(a.Router)

	a.Scheduler = scheduler.NewScheduler(&a.Config, a.Service, a.Sender, a.Dispatches, a.Hub)
	return a.Scheduler.Start()
}

// LastTick reports the last reminder run of the scheduler, once it exists
func (a *App) LastTick() (scheduler.Tick, bool) {
	if a.Scheduler == nil {
		return scheduler.Tick{}, false
	}
	return a.Scheduler.LastTick()
}

// Close stops the background jobs and disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

// indexHandler lists every registered route
func indexHandler(router *mux.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var routes []string
		_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			path, err := route.GetPathTemplate()
			if err != nil {
				return nil
			}
			methods, err := route.GetMethods()
			if err != nil {
				return nil
			}
			routes = append(routes, strings.Join(methods, ",")+" "+path)
			return nil
		})
		sort.Strings(routes)
		list(w, routes, len(routes))
	}
}
