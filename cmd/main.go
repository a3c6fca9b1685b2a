package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"tenant-service/internal/audit"
	"tenant-service/internal/authz"
	"tenant-service/internal/directory"
	"tenant-service/internal/handler"
	"tenant-service/internal/middleware"
	"tenant-service/internal/model"
	"tenant-service/internal/onboarding"
	"tenant-service/internal/resolver"
	"tenant-service/internal/vault"
	"tenant-service/pkg/config"
	"tenant-service/pkg/database"
	"tenant-service/pkg/jwtutil"
	"tenant-service/pkg/logger"
	"tenant-service/pkg/metrics"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found or error loading: %v\n", err)
	}

	// Load configuration
	conf, err := config.Load("tenant")
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	err = logger.InitLogger(&logger.LogConfig{
		Level:       conf.Log.Level,
		Environment: conf.Server.Env,
		ServiceName: conf.ServiceName,
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.Info("Starting tenant-service", conf.LogConfig()...)

	// Initialize database connection
	db, err := database.InitDB(&conf.DB)
	if err != nil {
		log.Fatal("Failed to initialize database")
	}

	// Run migrations for directory models
	if err := database.MigrateModels(
		&model.Tenant{},
		&model.Membership{},
		&model.PhoneRoute{},
		&model.AgentConfig{},
		&model.AgentPack{},
		&model.IntegrationSecret{},
	); err != nil {
		log.Fatal("Failed to migrate database models")
	}

	// Initialize the credential vault. The master key is mandatory: there is
	// no plaintext fallback for integration secrets.
	secretVault, err := vault.New(conf.Vault.MasterKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault: VAULT_MASTER_KEY must be set")
	}

	// Wire the core: directory, resolver, authorization engine, onboarding
	store := directory.NewGormStore(db, conf.Directory.CacheTTL)
	tenantResolver := resolver.New(store)
	engine := authz.NewEngine(audit.NewZapSink(log.Named("audit")))
	coordinator := onboarding.New(store)

	handler.Init(store, tenantResolver, engine, secretVault, coordinator)

	// Initialize JWT utility
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      conf.JWT.SigningKey,
		ExpirationHours: conf.JWT.ExpirationHours,
	})

	// Initialize HTTP metrics
	httpMetrics := metrics.NewHTTPMetrics(conf.ServiceName)

	// Initialize Echo framework
	e := echo.New()

	// Apply middleware
	e.Use(middleware.RequestIDMiddleware())
	e.Use(logger.Middleware())
	e.Use(httpMetrics.Middleware())

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	// Public routes
	e.GET("/health", handler.HealthCheck)

	// Webhook routes - service-to-service, no user session. The telephony
	// provider's signature is verified by the ingress layer in front of this
	// service; tenant identity comes from the destination number only.
	e.POST("/webhook/call", handler.InboundCall)

	// Secured routes - require authentication
	api := e.Group("")
	api.Use(middleware.JWTAuthMiddleware(jwt))

	api.POST("/onboard", handler.OnboardTenant)

	api.GET("/tenant/profile", handler.GetTenantProfile)
	api.PUT("/tenant/profile", handler.UpdateTenantProfile)
	api.PUT("/tenant/status", handler.SetTenantStatus)

	api.GET("/tenant/agent-config", handler.GetAgentConfig)
	api.PUT("/tenant/agent-config", handler.UpdateAgentConfig)

	api.GET("/tenant/phone-numbers", handler.ListPhoneNumbers)
	api.POST("/tenant/phone-numbers", handler.AssignPhoneNumber)
	api.DELETE("/tenant/phone-numbers/:number", handler.DeactivatePhoneNumber)

	api.GET("/tenant/users", handler.ListTenantUsers)
	api.POST("/tenant/users", handler.InviteUser)
	api.DELETE("/tenant/users/:user_id", handler.RemoveUser)

	api.GET("/tenant/integrations/:type/credentials", handler.GetIntegrationSecret)
	api.PUT("/tenant/integrations/:type/credentials", handler.RotateIntegrationSecret)

	api.GET("/agent-packs", handler.ListAgentPacks)

	// Start server
	log.Info("Starting tenant-service on port " + conf.Server.Port)
	e.Logger.Fatal(e.Start(":" + conf.Server.Port))
}
