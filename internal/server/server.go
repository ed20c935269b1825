package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plately/plately/internal/config"
	"github.com/plately/plately/internal/observability/logger"
	orderdomain "github.com/plately/plately/internal/order/domain"
	platedomain "github.com/plately/plately/internal/plate/domain"
	webhookdomain "github.com/plately/plately/internal/webhook/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	webhookSvc webhookdomain.Service
	deliveries webhookdomain.Repository
	orders     orderdomain.Repository
	plates     platedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	WebhookSvc webhookdomain.Service
	Deliveries webhookdomain.Repository
	Orders     orderdomain.Repository
	Plates     platedomain.Repository
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		log:        p.Log.Named("server"),
		webhookSvc: p.WebhookSvc,
		deliveries: p.Deliveries,
		orders:     p.Orders,
		plates:     p.Plates,
	}

	s.registerWebhookRoutes()
	s.registerPublicRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/shopify", s.HandleShopifyWebhook)
}

func (s *Server) registerPublicRoutes() {
	s.engine.GET("/r/:slug", s.ResolvePlate)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.OperatorRequired())

	admin.GET("/deliveries", s.ListDeliveries)
	admin.GET("/deliveries/:id", s.GetDelivery)
	admin.GET("/orders/:ref", s.GetOrder)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
