package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Kevin-nav/AskTheSage/internal/config"
	"github.com/Kevin-nav/AskTheSage/internal/db"
	"github.com/Kevin-nav/AskTheSage/internal/engine"
	"github.com/Kevin-nav/AskTheSage/internal/event"
	"github.com/Kevin-nav/AskTheSage/internal/handlers"
	"github.com/Kevin-nav/AskTheSage/internal/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db.InitMongo(cfg.MongoURI)
	database := db.Client.Database(cfg.MongoDatabase)
	if err := db.EnsureIndexes(context.Background(), database); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// RabbitMQ event publisher
	var publisher *event.EventPublisher
	if cfg.RabbitURL != "" && cfg.RabbitExchange != "" {
		var err error
		publisher, err = event.NewEventPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, quiz events will not be published")
	}

	store := repository.NewStore(database)
	quizEngine := engine.NewEngine(store, nil)

	quizHandler := handlers.NewQuizHandler(quizEngine, cfg.StaleAfter)
	adminHandler := handlers.NewAdminHandler(store)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupQuizRoutes(r, quizHandler, publisher)
	setupAdminRoutes(r, adminHandler, quizHandler)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "askthesage",
			"status":  "healthy",
		})
	})

	r.Run(cfg.ListenAddr)
}

func setupQuizRoutes(r *gin.Engine, quizHandler *handlers.QuizHandler, publisher *event.EventPublisher) {
	quiz := r.Group("/quiz/session")

	quiz.Use(func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	})

	// Events describe operations that actually happened, so publishing is
	// gated on the handler having written a success status.
	quiz.POST("/", func(c *gin.Context) {
		quizHandler.StartQuiz(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.SessionStarted, gin.H{
				"user_id":   c.GetHeader("X-User-ID"),
				"timestamp": time.Now(),
			})
		}
	})

	quiz.GET("/:id/next", quizHandler.NextQuestion)

	quiz.POST("/:id/answer", func(c *gin.Context) {
		quizHandler.SubmitAnswer(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.AnswerSubmitted, gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"timestamp":  time.Now(),
			})
			if c.GetBool("quiz_completed") {
				publisher.Publish(event.SessionCompleted, gin.H{
					"session_id": c.Param("id"),
					"user_id":    c.GetHeader("X-User-ID"),
					"timestamp":  time.Now(),
				})
			}
		}
	})

	quiz.POST("/:id/skip", func(c *gin.Context) {
		quizHandler.SkipQuestion(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.AnswerSubmitted, gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"skipped":    true,
				"timestamp":  time.Now(),
			})
			if c.GetBool("quiz_completed") {
				publisher.Publish(event.SessionCompleted, gin.H{
					"session_id": c.Param("id"),
					"user_id":    c.GetHeader("X-User-ID"),
					"timestamp":  time.Now(),
				})
			}
		}
	})

	quiz.POST("/:id/report", func(c *gin.Context) {
		quizHandler.ReportQuestion(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.QuestionReported, gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"timestamp":  time.Now(),
			})
		}
	})

	quiz.POST("/:id/end", func(c *gin.Context) {
		quizHandler.EndEarly(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.SessionEndedEarly, gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"timestamp":  time.Now(),
			})
		}
	})

	quiz.POST("/:id/cancel", func(c *gin.Context) {
		quizHandler.Cancel(c)
		if publisher != nil && c.Writer.Status() < 300 {
			publisher.Publish(event.SessionCancelled, gin.H{
				"session_id": c.Param("id"),
				"user_id":    c.GetHeader("X-User-ID"),
				"timestamp":  time.Now(),
			})
		}
	})

	quiz.GET("/report", quizHandler.PerformanceReport)
}

func setupAdminRoutes(r *gin.Engine, adminHandler *handlers.AdminHandler, quizHandler *handlers.QuizHandler) {
	admin := r.Group("/admin")
	{
		admin.POST("/question", adminHandler.CreateQuestion)
		admin.GET("/question/:id", adminHandler.GetQuestion)
		admin.GET("/course", adminHandler.ListCourses)
		admin.POST("/course/:id/recalculate", adminHandler.RecalculateCourse)
		admin.POST("/session/resolve-stale", quizHandler.ResolveStale)
	}
}
