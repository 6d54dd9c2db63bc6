package main

import (
	"alcyxob/classroom/internal/api"
	"alcyxob/classroom/internal/config"
	"alcyxob/classroom/internal/coursesync"
	"alcyxob/classroom/internal/domain"
	"alcyxob/classroom/internal/repository"
	"alcyxob/classroom/internal/repository/bolt"
	"alcyxob/classroom/internal/repository/mongo"
	"alcyxob/classroom/internal/service"
	"alcyxob/classroom/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// @title Classroom API
// @version 1.0
// @description Subjects, tasks, assignments and submissions of one course, kept in sync with a shared course document.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Classroom Server...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: Could not read .env file: %v", err)
	}

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Course Store ---
	var store repository.CourseStore
	if cfg.Database.URI != "" {
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
		}
		defer func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			mongo.EnsureCourseIndexes(ctx, appDB.Collection(cfg.Database.Collection))
		}()
		store = mongo.NewMongoCourseRepository(appDB, cfg.Database.Collection)
		log.Println("Database connection established.")
	} else {
		log.Println("WARN: No database URI configured, running local-only.")
	}

	// --- Local Cache ---
	cache, err := bolt.Open(cfg.Cache.Path)
	if err != nil {
		log.Fatalf("FATAL: Could not open local cache: %v", err)
	}
	defer cache.Close()

	// --- File Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.Enabled() {
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("WARN: No S3 bucket configured, file uploads disabled.")
	}

	// --- Sync Engine ---
	var seed []domain.Subject
	if cfg.Cache.SeedDemo {
		seed = domain.DemoSubjects()
	}
	engine := coursesync.NewEngine(store, cache, seed)
	defer engine.Unsubscribe()

	hub := api.NewLiveHub()
	defer hub.Close()
	bind := func(ctx context.Context, courseID string) error {
		return engine.Bind(ctx, courseID, func(subjects []domain.Subject) {
			hub.Broadcast(api.SourceRemote, subjects)
		})
	}

	// --- Initialize Services ---
	validate := validator.New()
	sessionService := service.NewSessionService(cache, store, bind, validate, cfg.Course.ID, cfg.JWT.Secret, cfg.JWT.Expiration)
	courseService := service.NewCourseService(engine, validate)
	submissionService := service.NewSubmissionService(engine, validate)
	var uploadService service.UploadService
	if fileStorage != nil {
		uploadService = service.NewUploadService(engine, fileStorage, submissionService)
	}

	if err := bind(ctx, initialCourse(ctx, sessionService, cfg.Course.ID)); err != nil {
		log.Printf("WARN: Initial course load incomplete: %v", err)
	}

	// --- Initialize Gin Engine ---
	router := gin.Default()
	api.SetupRoutes(router, cfg.JWT.Secret, sessionService, courseService, submissionService, uploadService, hub)

	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: Server stopped: %v", err)
	}
	log.Println("Server exiting.")
}

// initialCourse picks the course to load before any request arrives: the one
// of the remembered session, else the configured default.
func initialCourse(ctx context.Context, sessions service.SessionService, fallback string) string {
	session, err := sessions.Current()
	if err != nil {
		if !errors.Is(err, service.ErrNoSession) {
			log.Printf("WARN: Could not read stored session: %v", err)
		}
		return fallback
	}
	courseID, err := sessions.ResolveCourseID(ctx, session)
	if err != nil || courseID == "" {
		return fallback
	}
	log.Printf("INFO: Resuming session '%s' on course '%s'", session.ID, courseID)
	return courseID
}
