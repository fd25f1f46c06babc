package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"
	"VideoQA-eval/internal/storage/mysql"
	"VideoQA-eval/internal/storage/nas"
	"VideoQA-eval/internal/web/handlers"

	"github.com/spf13/pflag"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flags := pflag.NewFlagSet("generate-static", pflag.ExitOnError)
	config.RegisterFlags(flags)
	outputDir := flags.String("output-dir", "static", "靜態頁面輸出目錄")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("無法解析命令列參數: %v", err)
	}
	configDir, _ := flags.GetString("config-dir")

	// 載入配置
	cfg, err := config.Load(configDir, "config", flags)
	if err != nil {
		log.Fatalf("無法載入配置: %v", err)
	}

	storage, err := nas.NewFileSystemStorage(cfg.Evaluation.FrameOutputDir)
	if err != nil {
		log.Fatalf("無法初始化檔案儲存: %v", err)
	}
	report, err := storage.ReadReport(cfg.Evaluation.ReportPath)
	if err != nil {
		log.Fatalf("無法讀取評測報告: %v", err)
	}

	// 有啟用資料庫時一併列出歷次評測
	var runs []models.RunSummary
	if cfg.Database.Enabled {
		db, err := mysql.NewMySQLStore(cfg.Database)
		if err != nil {
			log.Fatalf("無法連接到資料庫: %v", err)
		}
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		runs, err = db.ListRuns(ctx, 50)
		if err != nil {
			log.Printf("警告：無法讀取歷次評測: %v", err)
		}
	}

	tpl, err := handlers.ParseDashboardTemplate()
	if err != nil {
		log.Fatalf("無法解析模板: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("無法創建輸出目錄: %v", err)
	}
	outputFile := filepath.Join(*outputDir, "index.html")
	file, err := os.Create(outputFile)
	if err != nil {
		log.Fatalf("無法創建輸出檔案: %v", err)
	}
	defer file.Close()

	var latest *models.RunSummary
	if len(runs) > 0 {
		latest = &runs[0]
	}
	pageData := handlers.BuildDashboardPageData(report, latest, runs)
	pageData.Static = true

	if err := tpl.Execute(file, pageData); err != nil {
		log.Fatalf("無法執行模板: %v", err)
	}
	log.Printf("靜態檔案已生成: %s", outputFile)
}
