package main

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"gorm.io/gorm/logger"

	"github.com/SuhasKaranth/codeAnalyzerUI/internal/backend"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/database"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/events"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/services"
	"github.com/SuhasKaranth/codeAnalyzerUI/internal/utils"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Best-effort: a missing .env just means env vars come from the shell
	_ = utils.LoadEnv()

	app := NewApp()

	db, err := database.Init(database.Config{
		LogLevel: logger.Info,
	})
	if err != nil {
		fmt.Println("Error opening database:", err)
		return
	}

	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}

	//Create each service
	gitService := services.NewGitService()
	keyringService := services.NewKeyringService()
	dbService := services.NewDbServices(db)

	backendClient := backend.NewClient(os.Getenv("BACKEND_URL"))
	analysisService := services.NewAnalysisService(dbService.SessionStore, backendClient)

	app.Users = dbService.Users
	app.AppSettings = dbService.AppSettings
	app.analysis = analysisService
	app.git = gitService
	app.keyring = keyringService

	// Create application with options
	err = wails.Run(&options.App{
		Title:  "Code Analyzer",
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "Code Analyzer",
		},
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
			events.EnableRuntimeEmitter()
			dbService.StartDbServices(ctx)
			gitService.Startup(ctx)

			// Settings override the env-provided backend URL
			if settings, err := dbService.AppSettings.Get(); err == nil && settings.BackendURL != "" {
				backendClient.SetBaseURL(settings.BackendURL)
			}
			if token, err := keyringService.GetBackendToken(); err == nil && token != "" {
				backendClient.WithToken(token)
			}

			if err := analysisService.Startup(ctx); err != nil {
				fmt.Println("Error starting analysis service:", err)
			}
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
