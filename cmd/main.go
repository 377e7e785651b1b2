package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"notevault/internal/auth"
	"notevault/internal/config"
	"notevault/internal/domain"
	"notevault/internal/handler"
	"notevault/internal/preview"
	"notevault/internal/repository"
	"notevault/internal/service"
	"notevault/internal/service/s3"
)

func connectWithRetry(dsn string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		logrus.Warnf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		logrus.Warnf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		logrus.Warnf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	// Загружаем конфигурации
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(appConfig.Server.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	// Подключаемся к базе данных
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		appConfig.Database.Host,
		appConfig.Database.Port,
		appConfig.Database.User,
		appConfig.Database.Password,
		appConfig.Database.Name,
		appConfig.Database.SSLMode,
	)

	db, err := connectWithRetry(dsn, 5, time.Second*5)
	if err != nil {
		logrus.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Инициализация S3 клиента
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		logrus.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		logrus.Fatalf("Failed to create S3 client: %v", err)
	}

	// Проверка токенов аутентификации
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		logrus.Fatalf("Failed to load auth config: %v", err)
	}
	auth.Init(authConfig)

	// Инициализация репозиториев
	itemRepo := repository.NewItemRepository(db)
	folderRepo := repository.NewFolderRepository(db)
	quotaRepo := repository.NewStorageQuotaRepository(db)

	// Инициализация сервисов
	janitor := service.NewBlobJanitor(s3Client)
	quotaService := service.NewQuotaService(quotaRepo)
	storageService := service.NewStorageService(itemRepo, folderRepo, quotaRepo, s3Client, janitor)
	folderService := service.NewFolderService(folderRepo, itemRepo, quotaRepo, janitor)
	previewService := preview.NewService(s3Client)

	// Инициализация хендлеров
	itemHandler := handler.NewItemHandler(storageService, quotaService, previewService)
	folderHandler := handler.NewFolderHandler(folderService, quotaService)
	quotaHandler := handler.NewStorageQuotaHandler(quotaService)

	// Настройка HTTP роутера
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTTP маршруты
	r.Route("/v1", func(r chi.Router) {
		r.Route("/notes", func(r chi.Router) {
			r.Post("/", itemHandler.CreateNote)
			r.Get("/", itemHandler.List(kindPtr(domain.KindNote)))
			r.Get("/recent", itemHandler.Recent(kindPtr(domain.KindNote)))

			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", itemHandler.Get(domain.KindNote))
				r.Put("/", itemHandler.UpdateNote)
				r.Delete("/", itemHandler.Delete(domain.KindNote))
				r.Post("/duplicate", itemHandler.Duplicate(domain.KindNote))
				r.Patch("/favorite", itemHandler.ToggleFavorite(domain.KindNote))
			})
		})

		r.Post("/upload/image", itemHandler.Upload(domain.KindImage))
		r.Post("/upload/pdf", itemHandler.Upload(domain.KindPDF))

		r.Route("/images", func(r chi.Router) {
			r.Get("/", itemHandler.List(kindPtr(domain.KindImage)))

			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", itemHandler.Get(domain.KindImage))
				r.Get("/download", itemHandler.Download(domain.KindImage))
				r.Put("/", itemHandler.UpdateMeta(domain.KindImage))
				r.Delete("/", itemHandler.Delete(domain.KindImage))
				r.Post("/duplicate", itemHandler.Duplicate(domain.KindImage))
				r.Patch("/favorite", itemHandler.ToggleFavorite(domain.KindImage))
			})
		})

		r.Route("/pdfs", func(r chi.Router) {
			r.Get("/", itemHandler.List(kindPtr(domain.KindPDF)))

			r.Route("/{uuid}", func(r chi.Router) {
				r.Get("/", itemHandler.Get(domain.KindPDF))
				r.Get("/download", itemHandler.Download(domain.KindPDF))
				r.Put("/", itemHandler.UpdateMeta(domain.KindPDF))
				r.Delete("/", itemHandler.Delete(domain.KindPDF))
				r.Post("/duplicate", itemHandler.Duplicate(domain.KindPDF))
				r.Patch("/favorite", itemHandler.ToggleFavorite(domain.KindPDF))
			})
		})

		r.Get("/items/{uuid}/preview", itemHandler.Preview)

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", folderHandler.CreateFolder)
			r.Get("/", folderHandler.ListFolders)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", folderHandler.GetFolderContent)
				r.Put("/", folderHandler.RenameFolder)
				r.Delete("/", folderHandler.DeleteFolder)
				r.Post("/duplicate", folderHandler.DuplicateFolder)
				r.Patch("/favorite", folderHandler.ToggleFavorite)
			})
		})

		r.Route("/storage", func(r chi.Router) {
			r.Get("/stats", quotaHandler.GetStats)
			r.Get("/recent", itemHandler.Recent(nil))
			r.Put("/limit", quotaHandler.UpdateLimit)
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Канал для сигналов завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logrus.Infof("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server forced to shutdown: %v", err)
	}

	if err := db.Close(); err != nil {
		logrus.Errorf("Error closing database connection: %v", err)
	}

	logrus.Info("Server exited properly")
}

func kindPtr(k domain.ItemKind) *domain.ItemKind {
	return &k
}
