package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/config"
	"github.com/voclaria/voclaria/internal/db"
	"github.com/voclaria/voclaria/internal/realtime"
	"github.com/voclaria/voclaria/internal/repository"
	"github.com/voclaria/voclaria/internal/service"
	"github.com/voclaria/voclaria/internal/storage"
)

type App struct {
	Cfg     *config.Config
	DB      *sqlx.DB
	Storage storage.Storage
	Avatars *avatar.Resolver

	// Broker fans change notifications out to live feeds on this instance.
	Broker *realtime.Broker
	// Publisher is the Redis relay when REDIS_URL is set, else Broker.
	Publisher realtime.Publisher
	Relay     *realtime.RedisRelay

	AuthService         *service.AuthService
	ProfileService      *service.ProfileService
	EmailService        *service.EmailService
	RosterService       *service.RosterService
	LiveSessionService  *service.LiveSessionService
	EnrollmentService   *service.EnrollmentService
	ProgressService     *service.ProgressService
	LessonService       *service.LessonService
	CommunityService    *service.CommunityService
	NotificationService *service.NotificationService
	AttendanceService   *service.AttendanceService
	DemoSeeder          *service.DemoSeeder

	redis *redis.Client
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.Open(ctx, cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &App{Cfg: cfg, DB: database}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	sessionRepository := repository.NewSessionRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	profileRepository := repository.NewProfileRepository(database)
	teacherStudentRepository := repository.NewTeacherStudentRepository(database)
	progressRepository := repository.NewProgressRepository(database)
	liveSessionRepository := repository.NewLiveSessionRepository(database)
	joinRequestRepository := repository.NewJoinRequestRepository(database)
	attendanceRepository := repository.NewAttendanceRepository(database)
	postRepository := repository.NewPostRepository(database)
	likeRepository := repository.NewLikeRepository(database)
	commentRepository := repository.NewCommentRepository(database)
	notificationRepository := repository.NewNotificationRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = fileStorage
	a.Avatars = avatar.NewResolver(fileStorage, avatar.Config{
		Bucket:      cfg.S3Bucket,
		TTL:         cfg.AvatarURLTTL,
		Concurrency: cfg.AvatarSignConcurrency,
	})

	// Realtime
	a.Broker = realtime.NewBroker()
	a.Publisher = a.Broker
	if cfg.RedisURL != "" {
		client, err := realtime.Connect(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize realtime relay: %w", err)
		}
		a.redis = client
		a.Relay = realtime.NewRedisRelay(client, a.Broker, "")
		a.Publisher = a.Relay
		slog.Info("realtime relay enabled")
	}

	// Services
	a.EmailService = service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	a.AuthService = service.NewAuthService(
		userRepository,
		sessionRepository,
		tokenRepository,
		profileRepository,
		a.EmailService,
		a.Publisher,
		cfg.JWTSecret,
		cfg.JWTExpiry,
		cfg.TokenPasswordResetExpiry,
	)
	a.ProfileService = service.NewProfileService(profileRepository, fileStorage, a.Avatars, a.Publisher)
	a.RosterService = service.NewRosterService(teacherStudentRepository, profileRepository, progressRepository, a.Avatars)
	a.LiveSessionService = service.NewLiveSessionService(liveSessionRepository, profileRepository, teacherStudentRepository, a.Avatars, a.Publisher)
	a.EnrollmentService = service.NewEnrollmentService(
		joinRequestRepository,
		teacherStudentRepository,
		profileRepository,
		userRepository,
		a.EmailService,
		a.Avatars,
		a.Publisher,
	)
	a.ProgressService = service.NewProgressService(progressRepository, a.Publisher)
	a.AttendanceService = service.NewAttendanceService(attendanceRepository, liveSessionRepository, profileRepository, a.Avatars, a.Publisher)
	a.CommunityService = service.NewCommunityService(
		postRepository,
		likeRepository,
		commentRepository,
		notificationRepository,
		profileRepository,
		a.Avatars,
		a.Publisher,
	)
	a.NotificationService = service.NewNotificationService(notificationRepository, profileRepository, a.Avatars, a.Publisher)
	a.DemoSeeder = service.NewDemoSeeder(
		userRepository,
		profileRepository,
		teacherStudentRepository,
		progressRepository,
		liveSessionRepository,
		joinRequestRepository,
	)

	a.LessonService = service.NewLessonService(cfg.ContentPath)
	if err := a.LessonService.Load(); err != nil {
		slog.Warn("failed to load lessons", "error", err, "path", cfg.ContentPath)
	}

	return a, nil
}

func (a *App) Close() error {
	if a.Broker != nil {
		a.Broker.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
