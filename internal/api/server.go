package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/service"
)

// Server is the thin HTTP edge over the booking core. All domain decisions
// live in the services; handlers only translate requests and errors.
type Server struct {
	echo          *echo.Echo
	availability  *service.AvailabilityService
	booking       *service.BookingService
	consultations *service.ConsultationService
	logger        *zap.Logger
}

func NewServer(
	availability *service.AvailabilityService,
	booking *service.BookingService,
	consultations *service.ConsultationService,
	jwtSecret string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		echo:          echo.New(),
		availability:  availability,
		booking:       booking,
		consultations: consultations,
		logger:        logger,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(echomw.Recover())
	s.echo.Use(requestLogger(logger))

	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1", JWTAuth(jwtSecret))
	v1.POST("/slots", s.createSlot)
	v1.DELETE("/slots/:id", s.deleteSlot)
	v1.POST("/slots/:id/claim", s.claimSlot)
	v1.GET("/consultants/:id/slots", s.listSlots)
	v1.GET("/consultants/:id/bookable", s.listBookableSlots)
	v1.GET("/consultants/:id/consultations", s.listConsultantConsultations)
	v1.POST("/consultations/:id/transition", s.transitionConsultation)
	v1.GET("/me/consultations", s.listMyConsultations)

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	})
}
