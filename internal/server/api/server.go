// Package api exposes the contactbook HTTP endpoints over an echo server.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/dkovalenko/contactbook/internal/logging"
	"github.com/dkovalenko/contactbook/internal/server/models"
	"github.com/dkovalenko/contactbook/internal/server/services"
)

// userService is the slice of UserService the transport needs.
type userService interface {
	Register(ctx context.Context, email string, password string) (*models.User, error)
	Login(ctx context.Context, email string, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// contactService is the slice of ContactService the transport needs.
type contactService interface {
	Create(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error)
	Get(ctx context.Context, userID string, id string) (*models.Contact, error)
	List(ctx context.Context, userID string, offset int, limit int) ([]*models.Contact, error)
	Update(ctx context.Context, userID string, contact *models.Contact) (*models.Contact, error)
	Delete(ctx context.Context, userID string, id string) error
	Search(ctx context.Context, userID string, query string) ([]*models.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID string) ([]*models.Contact, error)
	AvatarUploadURL(ctx context.Context, userID string, id string) (string, string, error)
	AvatarDownloadURL(ctx context.Context, userID string, id string) (string, error)
}

const shutdownTimeout = 10 * time.Second

type Server struct {
	address  string
	logger   logging.Logger
	users    userService
	contacts contactService
}

func NewServer(address string, l logging.Logger, us userService, cs contactService) *Server {
	return &Server{
		address:  address,
		logger:   l.With("module", "http_server"),
		users:    us,
		contacts: cs,
	}
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)

	e.Use(
		middleware.Recover(),
		middleware.RequestID(),
		s.logRequests(),
	)

	s.registerRoutes(e)

	return e
}

func (s *Server) Run(ctx context.Context) error {

	e := s.newEcho()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) logRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			args := []any{
				"method", req.Method,
				"uri", req.RequestURI,
				"latency", latency,
				"status", res.Status,
			}
			if err != nil {
				args = append(args, "error", err)
			}
			s.logger.Debug(req.Context(), "request handled", args...)
			return err
		}
	}
}
