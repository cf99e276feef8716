package routes

import (
	"net/http"
	"time"

	"github.com/LovationAdmin/gastos-api/handlers"
	"github.com/LovationAdmin/gastos-api/middleware"
	"github.com/LovationAdmin/gastos-api/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Nil optional fields disable the
// matching routes or side effects.
type Deps struct {
	BasePath    string
	CORSOrigins []string
	Identity    services.IdentityProvider
	Expenses    *services.ExpenseService
	Repository  *services.ExpenseRepository
	Categorizer *services.CategorizerService
	Email       *services.EmailService
	Events      services.EventPublisher
	WS          *handlers.WSHandler
	RateLimiter *middleware.RateLimiter
	AdminSecret string
	Location    *time.Location
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Admin-Secret"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(middleware.RequestLogger())
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)

	basePath := deps.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}

	api := router.Group(basePath)
	if basePath != "/" {
		api.GET("/health", health)
	}

	SetupAuthRoutes(api, deps)
	SetupAdminRoutes(api, deps)
	api.GET("/categories", handlers.ListCategories)

	authHandler := middleware.AuthMiddleware(deps.Identity)

	protected := api.Group("/")
	protected.Use(authHandler)
	SetupExpenseRoutes(protected, deps)
	SetupProfileRoutes(protected, deps)

	if deps.WS != nil {
		api.GET("/ws", authHandler, deps.WS.HandleWS)
	}

	return router
}

// SetupAuthRoutes sets up the public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, deps Deps) {
	h := handlers.NewAuthHandler(deps.Identity, deps.Email)

	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
}

// SetupExpenseRoutes sets up the protected expense routes.
func SetupExpenseRoutes(rg *gin.RouterGroup, deps Deps) {
	h := handlers.NewExpenseHandler(deps.Expenses, deps.Categorizer, deps.Events)

	rg.GET("/expenses/summary", h.GetSummary)
	rg.GET("/expenses", h.ListExpenses)
	rg.POST("/expenses", h.CreateExpense)
	rg.GET("/expenses/:id", h.GetExpense)
	rg.PUT("/expenses/:id", h.UpdateExpense)
	rg.DELETE("/expenses/:id", h.DeleteExpense)

	if deps.Categorizer != nil {
		rg.POST("/expenses/categorize", h.SuggestCategory)
	}
}

// SetupProfileRoutes sets up the protected profile and 2FA routes.
func SetupProfileRoutes(rg *gin.RouterGroup, deps Deps) {
	h := handlers.NewProfileHandler(deps.Identity)

	rg.GET("/profile", h.GetProfile)
	rg.POST("/profile/2fa/setup", h.SetupTOTP)
	rg.POST("/profile/2fa/verify", h.VerifyTOTP)
	rg.POST("/profile/2fa/disable", h.DisableTOTP)
}

// SetupAdminRoutes sets up the maintenance routes.
func SetupAdminRoutes(rg *gin.RouterGroup, deps Deps) {
	if deps.Repository == nil {
		return
	}
	h := handlers.NewAdminHandler(deps.Repository, deps.AdminSecret, deps.Location)

	rg.POST("/admin/migrate-expenses", h.MigrateAllExpenses)
	rg.POST("/admin/migrate-expenses/:user_id", h.MigrateUserExpenses)
}
