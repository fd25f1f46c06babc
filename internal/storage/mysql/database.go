package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"VideoQA-eval/internal/config"
	"VideoQA-eval/internal/models"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore 將每次評測的摘要與逐題結果歸檔到 MySQL
type MySQLStore struct {
	db *sql.DB
}

// DSN 組出 go-sql-driver/mysql 的連線字串
func DSN(dbCfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.DBName)
}

// NewMySQLStore 開啟連線並確認資料庫可用
func NewMySQLStore(dbCfg config.DatabaseConfig) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	db, err := sql.Open("mysql", DSN(dbCfg))
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	log.Println("資訊：成功連線到 MySQL 資料庫。")
	return NewMySQLStoreWithDB(db), nil
}

// NewMySQLStoreWithDB 使用既有的連線 (測試時傳入 sqlmock)
func NewMySQLStoreWithDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		log.Println("資訊：正在關閉 MySQL 資料庫連線...")
		return s.db.Close()
	}
	return nil
}

const insertRunQuery = `
	INSERT INTO evaluation_runs (
		run_id, dataset_path, frame_output_dir, report_path, target_fps, max_frames,
		provider, model, total_questions, correct_count, accuracy,
		started_at, finished_at, error_message
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

const insertQuestionQuery = `
	INSERT INTO question_results (
		run_id, video_path, question, options, correct_answer, model_output, result
	)
	VALUES (?, ?, ?, ?, ?, ?, ?);`

// SaveRun 在同一個交易中寫入執行摘要與所有逐題結果
func (s *MySQLStore) SaveRun(ctx context.Context, summary models.RunSummary, report *models.AggregateReport) (err error) {
	if summary.RunID == "" {
		return fmt.Errorf("RunID 不得為空")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("開始交易失敗 (run: %s): %w", summary.RunID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("警告：交易回滾失敗 (run: %s): %v\n", summary.RunID, rbErr)
			}
		}
	}()

	p := summary.Params
	_, err = tx.ExecContext(ctx, insertRunQuery,
		summary.RunID, p.DatasetPath, p.FrameOutputDir, p.ReportPath, p.TargetFPS, p.MaxFrames,
		summary.Provider, summary.Model, summary.TotalQuestions, summary.CorrectCount, summary.Accuracy,
		summary.StartedAt, summary.FinishedAt, summary.ErrorMessage.NullString,
	)
	if err != nil {
		return fmt.Errorf("寫入評測執行記錄失敗 (run: %s): %w", summary.RunID, err)
	}

	var rows int
	if report != nil {
		for _, video := range report.Videos {
			for _, q := range video.Questions {
				options, marshalErr := json.Marshal(q.Options)
				if marshalErr != nil {
					err = fmt.Errorf("序列化選項失敗 (run: %s): %w", summary.RunID, marshalErr)
					return err
				}
				_, err = tx.ExecContext(ctx, insertQuestionQuery,
					summary.RunID, video.VideoPath, q.Question, options, q.CorrectAnswer.Raw, string(q.ModelOutput), string(q.Result),
				)
				if err != nil {
					return fmt.Errorf("寫入逐題結果失敗 (run: %s, video: %s): %w", summary.RunID, video.VideoPath, err)
				}
				rows++
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("提交交易失敗 (run: %s): %w", summary.RunID, err)
	}
	log.Printf("資訊：評測執行 %s 已寫入資料庫 (%d 筆逐題結果)。\n", summary.RunID, rows)
	return nil
}

// ListRuns 依開始時間由新到舊列出最近的評測執行
func (s *MySQLStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT run_id, dataset_path, frame_output_dir, report_path, target_fps, max_frames,
			provider, model, total_questions, correct_count, accuracy,
			started_at, finished_at, error_message
		FROM evaluation_runs
		ORDER BY started_at DESC
		LIMIT ?;`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢評測執行記錄失敗: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var r models.RunSummary
		var errorMessage sql.NullString
		err := rows.Scan(
			&r.RunID, &r.Params.DatasetPath, &r.Params.FrameOutputDir, &r.Params.ReportPath, &r.Params.TargetFPS, &r.Params.MaxFrames,
			&r.Provider, &r.Model, &r.TotalQuestions, &r.CorrectCount, &r.Accuracy,
			&r.StartedAt, &r.FinishedAt, &errorMessage,
		)
		if err != nil {
			log.Printf("錯誤：掃描評測執行記錄失敗: %v", err)
			continue
		}
		r.ErrorMessage = models.JsonNullString{NullString: errorMessage}
		runs = append(runs, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("處理評測執行記錄結果集時發生錯誤: %w", err)
	}
	return runs, nil
}
