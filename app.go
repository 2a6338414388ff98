package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"gorm.io/gorm/logger"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/database"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/events"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/models"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/services"
)

// App struct
type App struct {
	ctx         context.Context
	Users       services.UserService
	AppSettings services.AppSettingsService
	analysis    *services.AnalysisService
	git         *services.GitService
	keyring     *services.KeyringService
	dbClose     func() error
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	if a.Users != nil {
		return // already wired by main
	}

	db, err := database.Init(database.Config{
		LogLevel: logger.Info,
	})
	if err != nil {
		runtime.LogError(a.ctx, fmt.Sprintf("failed to open database: %v", err))
		return
	}

	svc := services.NewDbServices(db)
	svc.StartDbServices(ctx)
	a.Users = svc.Users
	a.AppSettings = svc.AppSettings
	a.git = services.NewGitService()
	a.keyring = services.NewKeyringService()

	if sqlDB, err := db.DB(); err != nil {
		runtime.LogError(a.ctx, fmt.Sprintf("failed to get sql.DB: %v", err))
	} else {
		a.dbClose = sqlDB.Close
	}
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			runtime.LogError(ctx, fmt.Sprintf("failed to close database: %v", err))
		} else {
			runtime.LogInfo(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// Login registers or fetches the user for the given email and restores
// their analysis session.
func (a *App) Login(email, name string) (*models.SessionSnapshot, error) {
	if a.Users == nil || a.analysis == nil {
		return nil, fmt.Errorf("services not available")
	}

	user, err := a.Users.Register(a.ctx, email, name)
	if err != nil {
		runtime.LogError(a.ctx, fmt.Sprintf("failed to register user: %v", err))
		return nil, err
	}
	return a.analysis.Initialize(user.Email)
}

// StartAnalysis submits a repository URL to the analysis backend.
func (a *App) StartAnalysis(repositoryURL string) (*models.SessionSnapshot, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.StartAnalysis(repositoryURL)
}

// AskQuestion sends a question about the analyzed repository.
func (a *App) AskQuestion(question string) (*models.QAEntry, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.AskQuestion(question)
}

// CheckProgress polls the backend for the analysis status.
func (a *App) CheckProgress() (*models.SessionSnapshot, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.CheckProgress()
}

// ForceComplete marks the analysis complete and loads the file tree now.
func (a *App) ForceComplete() error {
	if a.analysis == nil {
		return fmt.Errorf("analysis service not available")
	}
	return a.analysis.ForceComplete()
}

// ClearSession discards the persisted session and starts a fresh one.
func (a *App) ClearSession() (*models.SessionSnapshot, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.ClearSession()
}

// GetSession returns the current session snapshot.
func (a *App) GetSession() (*models.SessionSnapshot, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.Snapshot(), nil
}

// GetActivityLog returns the analysis activity timeline, newest first.
func (a *App) GetActivityLog() ([]events.ActivityEntry, error) {
	if a.analysis == nil {
		return nil, fmt.Errorf("analysis service not available")
	}
	return a.analysis.ActivityLog(), nil
}

// PreflightRepository inspects a local checkout before submission.
func (a *App) PreflightRepository(repoPath string) (*models.PreflightReport, error) {
	if a.git == nil {
		return nil, fmt.Errorf("git service not available")
	}
	return a.git.Preflight(repoPath)
}

// ListRepoBranches returns all branches of a repo
func (a *App) ListRepoBranches(repoPath string) ([]models.BranchInfo, error) {
	if a.git == nil {
		return nil, fmt.Errorf("git service not available")
	}
	return a.git.ListBranchesByPath(repoPath)
}

// StoreBackendToken saves the analysis backend token in the OS keychain.
func (a *App) StoreBackendToken(token string) error {
	if a.keyring == nil {
		return fmt.Errorf("keyring service not available")
	}
	return a.keyring.StoreBackendToken(token)
}

// GetAppSettings returns the current application settings
func (a *App) GetAppSettings() (*models.AppSettings, error) {
	if a.AppSettings == nil {
		return nil, fmt.Errorf("app settings service not available")
	}
	return a.AppSettings.Get()
}

// UpdateAppSettings updates theme, locale and backend URL and returns the
// updated settings
func (a *App) UpdateAppSettings(theme, locale, backendURL string) (*models.AppSettings, error) {
	if a.AppSettings == nil {
		return nil, fmt.Errorf("app settings service not available")
	}
	return a.AppSettings.Update(theme, locale, backendURL)
}

// SelectDirectory opens a native directory picker dialog
func (a *App) SelectDirectory() (string, error) {
	dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Repository Directory",
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}
