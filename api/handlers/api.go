package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/chatbot"
	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/databases"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Hub       *Hub
	Metrics   *api.Metrics
	Collector *api.MetricsCollector
	Responder chatbot.Responder
	Uploader  Uploader

	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.Metrics == nil {
		a.Metrics = api.NewMetrics()
	}
	if a.Hub == nil {
		a.Hub = NewHub(a.Metrics)
	}
	if a.Responder == nil {
		a.Responder = a.newResponder()
	}

	// setup go-guardian for middleware
	m := &api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper), Secret: []byte(a.Config.JWTSecret)}
	m.SetupGoGuardian()

	limiter := api.NewRateLimiter(a.Config.SendRatePerMinute, a.Config.SendRateBurst)
	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := Chat{
		SessionDB:   databases.NewChatSessionDatabase(a.dbHelper),
		MessageDB:   databases.NewChatMessageDatabase(a.dbHelper),
		Responder:   a.Responder,
		Hub:         a.Hub,
		Metrics:     a.Metrics,
		RequireAuth: a.Config.ChatRequireAuth,
	}
	f := Feedback{
		MessageDB:  databases.NewChatMessageDatabase(a.dbHelper),
		SessionDB:  databases.NewChatSessionDatabase(a.dbHelper),
		FeedbackDB: databases.NewFeedbackDatabase(a.dbHelper),
		Hub:        a.Hub,
		Metrics:    a.Metrics,
	}
	u := Upload{Uploader: a.Uploader}
	mh := MetricsHandler{Collector: a.Collector}
	staffOnly := api.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware(a.Metrics, a.Collector))

	// healthchex
	r.HandleFunc("/health", api.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", a.Metrics.Handler()).Methods("GET")
	r.Handle("/ws/chat", queryToken(m.Middleware(http.HandlerFunc(a.Hub.HandleChatWebSocket)))).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.TimeoutMiddleware(timeout))

	apiRouter.Handle("/auth/token", m.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")

	apiRouter.Handle("/chat/send", m.OptionalMiddleware(limiter.Middleware(http.HandlerFunc(c.SendHandler)))).Methods("POST")
	apiRouter.Handle("/chat/history/{sessionId}", m.Middleware(http.HandlerFunc(c.SessionHistoryHandler))).Methods("GET")
	apiRouter.Handle("/chat/user/{userId}/history", m.Middleware(http.HandlerFunc(c.UserHistoryHandler))).Methods("GET")
	apiRouter.Handle("/chat/upload", m.Middleware(http.HandlerFunc(u.UploadHandler))).Methods("POST")
	apiRouter.Handle("/feedback", m.Middleware(http.HandlerFunc(f.FeedbackHandler))).Methods("POST")

	apiRouter.Handle("/metrics/summary", m.Middleware(staffOnly(http.HandlerFunc(mh.GetMetricsSummary)))).Methods("GET")
	apiRouter.Handle("/metrics/route", m.Middleware(staffOnly(http.HandlerFunc(mh.GetRouteMetrics)))).Methods("GET")

	return r
}

// queryToken lets browsers, which cannot set headers on a websocket
// handshake, pass the bearer token as ?token=
func queryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if t := r.URL.Query().Get("token"); t != "" {
				r.Header.Set("Authorization", "Bearer "+t)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) newResponder() chatbot.Responder {
	chain := chatbot.Chain{
		Fallback:   chatbot.FallbackResponder{},
		OnFallback: func(error) { a.Metrics.ResponderFailed() },
	}
	if a.Config.ChatbotUpstreamURL != "" {
		chain.Primary = chatbot.NewProxyResponder(a.Config.ChatbotUpstreamURL, a.Config.ChatbotTimeout)
	}
	return chain
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("clinic-chat-api has connected to the database")

	if a.Config.CloudinaryURL != "" {
		up, err := NewCloudinaryUploader(a.Config.CloudinaryURL, a.Config.CloudinaryFolder)
		if err != nil {
			zap.S().With(err).Error("failed to configure cloudinary, uploads disabled")
		} else {
			a.Uploader = up
		}
	}
	a.Collector = api.NewMetricsCollector(10000, time.Hour)

	// initialize api router
	a.initializeRoutes()
	return nil
}

// DB returns the database the app is connected to
func (a *App) DB() databases.DatabaseHelper {
	return a.dbHelper
}

// Close releases the hub, the collector and the database connection
func (a *App) Close(ctx context.Context) error {
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Collector != nil {
		a.Collector.Stop()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}
