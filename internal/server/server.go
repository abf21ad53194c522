package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/otherscentered/platform/internal/config"
	memberdomain "github.com/otherscentered/platform/internal/member/domain"
	needdomain "github.com/otherscentered/platform/internal/need/domain"
	obslogger "github.com/otherscentered/platform/internal/observability/logger"
	"github.com/otherscentered/platform/internal/search"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParams struct {
	fx.In

	Config    config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	GenID     *snowflake.Node
	NeedSvc   needdomain.Service
	SearchSvc *search.Service
	Members   memberdomain.Repository
}

type Server struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	genID     *snowflake.Node
	needSvc   needdomain.Service
	searchSvc *search.Service
	members   memberdomain.Repository
}

func NewServer(p ServerParams) *Server {
	return &Server{
		cfg:       p.Config,
		log:       p.Log.Named("http.server"),
		db:        p.DB,
		genID:     p.GenID,
		needSvc:   p.NeedSvc,
		searchSvc: p.SearchSvc,
		members:   p.Members,
	}
}

func registerRoutes(r *gin.Engine, s *Server) {
	v1 := r.Group("/v1")

	v1.POST("/members", s.CreateMember)

	v1.POST("/needs", s.SubmitNeed)
	v1.GET("/needs", s.SearchNeeds)
	v1.GET("/needs/:id", s.GetNeed)
	v1.GET("/needs/:id/events", s.ListNeedEvents)
	v1.POST("/needs/:id/publish", s.PublishNeed)
	v1.POST("/needs/:id/claim", s.ClaimNeed)
	v1.POST("/needs/:id/verify", s.VerifyNeed)
	v1.POST("/needs/:id/close", s.CloseNeed)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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
