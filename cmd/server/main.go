package main

import (
	"log"
	"net/http"

	config "stresstest-api/configs"
	"stresstest-api/pkg/groq"
	"stresstest-api/pkg/handlers"
	"stresstest-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := config.LoadConfig()
	if cfg.GroqAPIKey == "" {
		log.Println("Warning: GROQ_API_KEY is not set; stress test jobs will fail at the report stage")
	}

	templates, err := config.LoadPromptTemplates(cfg.PromptTemplate)
	if err != nil {
		log.Fatalf("Failed to load prompt templates: %v", err)
	}

	r := gin.Default()

	// Service initialization
	monitoringService := services.NewMonitoringService()
	groqClient := groq.NewClient(cfg.GroqEndpoint, cfg.GroqAPIKey, cfg.GroqModel)
	stressTestService := services.NewStressTestService(groqClient, services.NewPromptBuilder(templates))
	reportStore, err := services.NewReportStore(cfg.ReportsDir)
	if err != nil {
		log.Fatalf("Failed to initialize report store: %v", err)
	}
	jobTracker := services.NewJobTracker(stressTestService, reportStore)

	// Handler initialization
	stressTestHandler := handlers.NewStressTestHandler(jobTracker, reportStore)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// Middleware registration
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	// API key middleware: callers must present the configured credential
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			if c.GetHeader("X-API-Key") != apiKey {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
				return
			}
			c.Next()
		}
	}

	r.GET("/health", handlers.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		v1.POST("/analyze", stressTestHandler.AnalyzeBusinessModel)
		v1.GET("/status/:job_id", stressTestHandler.GetJobStatus)
		v1.GET("/reports/:filename", stressTestHandler.GetReport)
		v1.GET("/reports/:filename/xlsx", stressTestHandler.GetRiskRegister)

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	log.Printf("Starting Business Model Stress Tester API on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
