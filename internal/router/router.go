package router

import (
	"net/http"
	"strconv"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"cuentas/internal/auth"
	"cuentas/internal/errors"
	"cuentas/internal/handler"
	"cuentas/internal/metrics"
)

// Deps carries everything Register needs to mount the API.
type Deps struct {
	JWT            *auth.JWTService
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	// Health reports readiness for /healthz. Nil means always healthy.
	Health func(c echo.Context) error
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(middleware.Recover())
	e.Use(instrument(d.Metrics))

	e.Validator = handler.NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		if d.Health != nil {
			if err := d.Health(c); err != nil {
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", d.AuthHandler.Login)
	api.POST("/accounts", d.AccountHandler.CreateAccount)

	// Secured routes (require JWT authentication)
	secured := api.Group("", JWTMiddleware(d.JWT))

	secured.GET("/me", d.AuthHandler.Me)

	secured.GET("/accounts", d.AccountHandler.ListAccounts)
	secured.GET("/accounts/role/:role", d.AccountHandler.GetAccountsByRole)
	secured.GET("/accounts/username/:username", d.AccountHandler.GetAccountByUsername)
	secured.GET("/accounts/:id", d.AccountHandler.GetAccount)
	secured.PUT("/accounts/:id", d.AccountHandler.UpdateAccount)
	secured.DELETE("/accounts/:id", d.AccountHandler.DeleteAccount)
}

// JWTMiddleware validates bearer tokens with jwtService and stores the resulting
// *auth.Claims under handler.ClaimsContextKey.
func JWTMiddleware(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.ClaimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing or invalid token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// instrument records request counts and latency by route template.
func instrument(m *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.RequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
