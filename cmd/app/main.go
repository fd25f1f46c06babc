package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VideoQA-eval/internal/clients/gemini"
	"VideoQA-eval/internal/clients/openai"
	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/media"
	"VideoQA-eval/internal/models"
	"VideoQA-eval/internal/scheduler"
	"VideoQA-eval/internal/services"
	"VideoQA-eval/internal/storage/mysql"
	"VideoQA-eval/internal/storage/nas"
	"VideoQA-eval/internal/web"
	"VideoQA-eval/internal/web/handlers"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

func runMigrations(dbCfg config.DatabaseConfig) error {
	migrationPath := "file://scripts/migrate/mysql"
	log.Printf("資訊：準備執行資料庫遷移，來源: %s, 資料庫: %s", migrationPath, dbCfg.DBName)
	m, err := migrate.New(migrationPath, "mysql://"+mysql.DSN(dbCfg)+"&multiStatements=true")
	if err != nil {
		return fmt.Errorf("建立遷移實例失敗: %w", err)
	}
	defer m.Close()

	currentVersion, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("獲取資料庫遷移版本失敗: %w", err)
	}
	if dirty {
		return fmt.Errorf("資料庫處於 dirty 狀態 (版本 %d)", currentVersion)
	}
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("資訊：資料庫結構已是最新，無需遷移。")
	case err != nil:
		return fmt.Errorf("執行資料庫遷移 (m.Up) 失敗: %w", err)
	default:
		newVersion, _, _ := m.Version()
		log.Printf("資訊：資料庫遷移成功完成，版本更新至: %d。", newVersion)
	}
	return nil
}

// newVisionModel 依設定建立推論後端，回傳的 closer 用於釋放連線
func newVisionModel(ctx context.Context, cfg *config.Config) (services.VisionModel, func() error, error) {
	switch cfg.Inference.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.GeminiClient, cfg.Inference)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		client, err := openai.NewClient(cfg.OpenAIClient, cfg.Inference.Model, openai.NewHTTPClient())
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flags := pflag.NewFlagSet("videoqa-eval", pflag.ExitOnError)
	config.RegisterFlags(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("錯誤：無法解析命令列參數: %v", err)
	}
	configDir, _ := flags.GetString("config-dir")

	cfg, err := config.Load(configDir, "config", flags)
	if err != nil {
		log.Fatalf("錯誤：無法載入設定: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := nas.NewFileSystemStorage(cfg.Evaluation.FrameOutputDir)
	if err != nil {
		log.Fatalf("錯誤：初始化檔案儲存失敗: %v", err)
	}

	var archive services.ResultArchive
	var runs handlers.RunLister
	if cfg.Database.Enabled {
		if err := runMigrations(cfg.Database); err != nil {
			log.Fatalf("錯誤：資料庫遷移失敗: %v", err)
		}
		store, err := mysql.NewMySQLStore(cfg.Database)
		if err != nil {
			log.Fatalf("錯誤：初始化 MySQL 資料庫連線失敗: %v", err)
		}
		defer store.Close()
		archive, runs = store, store
	} else {
		log.Println("資訊：資料庫歸檔已在設定檔中禁用。")
	}

	model, closeModel, err := newVisionModel(ctx, cfg)
	if err != nil {
		log.Fatalf("錯誤：初始化推論後端失敗: %v", err)
	}
	defer closeModel()

	extractor, err := services.NewVerdictExtractor(cfg.Inference.VerdictStrategy)
	if err != nil {
		log.Fatalf("錯誤：%v", err)
	}
	inferenceSvc, err := services.NewInferenceService(cfg.Inference, model, media.NewEncoder(), extractor)
	if err != nil {
		log.Fatalf("錯誤：初始化推論服務失敗: %v", err)
	}
	sampler, err := media.NewSampler(media.NewFFmpegDecoder(cfg.Sampler), cfg.Sampler)
	if err != nil {
		log.Fatalf("錯誤：初始化影格取樣器失敗: %v", err)
	}
	evaluateSvc, err := services.NewEvaluateService(cfg, storage, sampler, inferenceSvc, archive)
	if err != nil {
		log.Fatalf("錯誤：初始化評測服務失敗: %v", err)
	}

	if !cfg.Server.Enabled && !cfg.Scheduler.Enabled {
		runOnce(ctx, evaluateSvc)
		return
	}

	if cfg.Scheduler.Enabled {
		appScheduler, err := scheduler.NewScheduler(evaluateSvc, cfg.Scheduler.EvaluateCronSpec)
		if err != nil {
			log.Fatalf("錯誤：初始化排程器失敗: %v", err)
		}
		appScheduler.Start()
		defer appScheduler.Stop()
		log.Printf("資訊：下一次排程評測時間: %s", appScheduler.NextRun().Format(time.RFC3339))
	} else {
		log.Println("資訊：排程器已在設定檔中禁用。")
	}

	var server *http.Server
	if cfg.Server.Enabled {
		router, err := web.SetupRouter(evaluateSvc, runs, storage)
		if err != nil {
			log.Fatalf("錯誤：無法設定 HTTP 路由: %v", err)
		}
		log.Printf("資訊：/frames/ 提供影格目錄 %s", storage.FrameRoot())
		server = &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("資訊：HTTP 伺服器正在監聽 %s\n", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("錯誤：HTTP 伺服器監聽失敗: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("資訊：收到關閉訊號，正在關閉應用程式...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("錯誤：HTTP 伺服器優雅關閉失敗: %v", err)
		} else {
			log.Println("資訊：HTTP 伺服器已關閉。")
		}
	}
	log.Println("資訊：應用程式已成功關閉。")
}

// runOnce 執行單次評測後結束；資料集無法讀取時以非零狀態碼結束
func runOnce(ctx context.Context, svc *services.EvaluateService) {
	report, err := svc.Evaluate(ctx, svc.ParamsFromConfig())
	if err != nil {
		if errors.Is(err, models.ErrDatasetUnreadable) {
			log.Printf("錯誤：%v", err)
			os.Exit(1)
		}
		log.Fatalf("錯誤：評測失敗: %v", err)
	}
	fmt.Printf("Total Questions: %d\n", report.TotalQuestions)
	fmt.Printf("Correct Answers: %d\n", report.CorrectCount)
	fmt.Printf("Accuracy: %.2f%%\n", report.Accuracy)
}
