package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/repositories"
)

// DbServices aggregates all domain services backed by the database.
// Fields use plural names (e.g., Users) to align with Go conventions
// seen in service/store containers.
type DbServices struct {
	Users        UserService
	AppSettings  AppSettingsService
	SessionStore SessionStoreService
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB) *DbServices {
	userRepo := repositories.NewUserRepository(db)
	settingsRepo := repositories.NewAppSettingsRepository(db)
	sessionRepo := repositories.NewSessionRecordRepository(db)

	return &DbServices{
		Users:        NewUserService(userRepo),
		AppSettings:  NewAppSettingsService(settingsRepo),
		SessionStore: NewSessionStoreService(sessionRepo),
	}
}

// StartDbServices hands the runtime context to every service that keeps one.
func (s *DbServices) StartDbServices(ctx context.Context) {
	s.AppSettings.Startup(ctx)
	s.SessionStore.Startup(ctx)
}
