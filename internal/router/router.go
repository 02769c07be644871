package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"smartdocs/internal/handler"
)

// Register wires routes and middleware. requireAuth guards every route
// outside /auth, /public-documents and the health and docs endpoints.
func Register(
	e *echo.Echo,
	log *zap.Logger,
	requireAuth echo.MiddlewareFunc,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	documentHandler *handler.DocumentHandler,
	categoryHandler *handler.CategoryHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/check-token", authHandler.CheckToken)
	api.GET("/public-documents/search", documentHandler.PublicSearch)

	// Secured routes
	secured := api.Group("", requireAuth)

	secured.GET("/users/me", userHandler.Me)
	secured.GET("/users", userHandler.ListUsers)
	secured.POST("/users/profile-image", userHandler.UploadProfileImage)
	secured.DELETE("/users/profile-image", userHandler.DeleteProfileImage)
	secured.GET("/users/:id_or_email", userHandler.GetUser)
	secured.PUT("/users/:id_or_email", userHandler.UpdateUser)
	secured.DELETE("/users/:id_or_email", userHandler.DeleteUser)

	secured.GET("/documents", documentHandler.ListDocuments)
	secured.GET("/documents/search", documentHandler.SearchDocuments)
	secured.GET("/documents/:id", documentHandler.GetDocument)
	secured.POST("/documents", documentHandler.CreateDocument)
	secured.PUT("/documents/:id", documentHandler.UpdateDocument)
	secured.DELETE("/documents/:id", documentHandler.DeleteDocument)

	secured.GET("/categories", categoryHandler.ListCategories)
	secured.GET("/categories/:id", categoryHandler.GetCategory)
	secured.POST("/categories", categoryHandler.CreateCategory)
	secured.PUT("/categories/:id", categoryHandler.UpdateCategory)
	secured.DELETE("/categories/:id", categoryHandler.DeleteCategory)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by Register.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
