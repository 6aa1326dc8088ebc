package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/entitle/internal/checkout"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/creditoutbox"
	"github.com/smallbiznis/entitle/internal/identity"
	identitydomain "github.com/smallbiznis/entitle/internal/identity/domain"
	"github.com/smallbiznis/entitle/internal/metrics"
	"github.com/smallbiznis/entitle/internal/plan"
	"github.com/smallbiznis/entitle/internal/profile"
	"github.com/smallbiznis/entitle/internal/reconcile"
	reconciledomain "github.com/smallbiznis/entitle/internal/reconcile/domain"
	"github.com/smallbiznis/entitle/internal/sessionlock"
	"github.com/smallbiznis/entitle/internal/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	checkout.Module,
	plan.Module,
	subscription.Module,
	profile.Module,
	creditoutbox.Module,
	sessionlock.Module,
	reconcile.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	db           *gorm.DB
	identitySvc  identitydomain.Service
	reconcileSvc reconciledomain.Service
	metrics      *metrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	DB           *gorm.DB
	IdentitySvc  identitydomain.Service
	ReconcileSvc reconciledomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		db:           p.DB,
		identitySvc:  p.IdentitySvc,
		reconcileSvc: p.ReconcileSvc,
		metrics:      p.Metrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	checkout := api.Group("/checkout")
	checkout.POST("/verify", s.AuthRequired(), s.VerifyCheckoutSession)
}
