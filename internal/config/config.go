package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EvaluationConfig 評測執行參數，可由命令列旗標覆寫
type EvaluationConfig struct {
	DatasetPath    string  `mapstructure:"datasetPath"`
	FrameOutputDir string  `mapstructure:"frameOutputDir"`
	ReportPath     string  `mapstructure:"reportPath"`
	TargetFPS      float64 `mapstructure:"targetFPS"`
	MaxFrames      int     `mapstructure:"maxFrames"`
	// ScopeFramesPerVideo 為 true 時每部影片的影格寫入各自的子目錄，避免不同影片的舊影格混在一起
	ScopeFramesPerVideo bool `mapstructure:"scopeFramesPerVideo"`
}

// SamplerConfig 影格取樣設定
type SamplerConfig struct {
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	MaxWidth       int    `mapstructure:"maxWidth"`
	MaxHeight      int    `mapstructure:"maxHeight"`
	JPEGQuality    int    `mapstructure:"jpegQuality"`
	FFmpegPath     string `mapstructure:"ffmpegPath"`
	FFprobePath    string `mapstructure:"ffprobePath"`
}

// Timeout 單部影片取樣的時間上限
func (c SamplerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InferenceConfig 推論設定
type InferenceConfig struct {
	Provider        string `mapstructure:"provider"`
	Model           string `mapstructure:"model"`
	MaxImages       int    `mapstructure:"maxImages"`
	TimeoutSeconds  int    `mapstructure:"timeoutSeconds"`
	SystemPrompt    string `mapstructure:"systemPrompt"`
	VerdictStrategy string `mapstructure:"verdictStrategy"`
}

// Timeout 單次模型呼叫的時間上限
func (c InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type OpenAIClientConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseURL"`
}

type GeminiClientConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// SchedulerConfig 排程設定；啟用後依 cron 表達式重複執行評測
type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	EvaluateCronSpec string `mapstructure:"evaluateCronSpec"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config 應用程式設定
type Config struct {
	AppName      string             `mapstructure:"appName"`
	Evaluation   EvaluationConfig   `mapstructure:"evaluation"`
	Sampler      SamplerConfig      `mapstructure:"sampler"`
	Inference    InferenceConfig    `mapstructure:"inference"`
	OpenAIClient OpenAIClientConfig `mapstructure:"openAIClient"`
	GeminiClient GeminiClientConfig `mapstructure:"geminiClient"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Server       ServerConfig       `mapstructure:"server"`
}

// flagBindings 命令列旗標與設定鍵的對應
var flagBindings = map[string]string{
	"dataset":    "evaluation.datasetPath",
	"frames-dir": "evaluation.frameOutputDir",
	"report":     "evaluation.reportPath",
	"fps":        "evaluation.targetFPS",
	"max-frames": "evaluation.maxFrames",
}

// RegisterFlags 註冊評測進入點的命令列旗標
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config-dir", "./configs", "設定檔所在目錄")
	fs.String("dataset", "", "資料集 JSON 路徑")
	fs.String("frames-dir", "", "影格輸出目錄")
	fs.String("report", "", "報告輸出路徑")
	fs.Float64("fps", 0, "目標取樣頻率 (每秒影格數)")
	fs.Int("max-frames", 0, "每部影片最多取樣的影格數")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "VideoQA-eval")

	v.SetDefault("evaluation.datasetPath", "./data/example.json")
	v.SetDefault("evaluation.frameOutputDir", "./tmp")
	v.SetDefault("evaluation.reportPath", "./results.json")
	v.SetDefault("evaluation.targetFPS", 1.0)
	v.SetDefault("evaluation.maxFrames", 25)
	v.SetDefault("evaluation.scopeFramesPerVideo", false)

	v.SetDefault("sampler.timeoutSeconds", 30)
	v.SetDefault("sampler.maxWidth", 640)
	v.SetDefault("sampler.maxHeight", 300)
	v.SetDefault("sampler.jpegQuality", 50)
	v.SetDefault("sampler.ffmpegPath", "ffmpeg")
	v.SetDefault("sampler.ffprobePath", "ffprobe")

	v.SetDefault("inference.provider", "openai")
	v.SetDefault("inference.model", "qwen2vl")
	v.SetDefault("inference.maxImages", 15)
	v.SetDefault("inference.timeoutSeconds", 60)
	v.SetDefault("inference.systemPrompt", "You are a helpful assistant.")
	v.SetDefault("inference.verdictStrategy", "substring")

	// 空字串預設值讓 AutomaticEnv 能在 Unmarshal 時覆寫這些鍵
	v.SetDefault("openAIClient.apiKey", "")
	v.SetDefault("openAIClient.baseURL", "http://localhost:8000/v1")
	v.SetDefault("geminiClient.apiKey", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbName", "videoqa_eval")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.evaluateCronSpec", "0 0 3 * * *")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.addr", ":8080")
}

// Load 讀取設定檔、環境變數與命令列旗標 (flags 可為 nil)
func Load(configPath string, configName string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for flagName, key := range flagBindings {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("綁定命令列旗標 '%s' 失敗: %w", flagName, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("警告：[Config] 找不到設定檔，將使用預設值、環境變數與命令列旗標。")
		} else {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Inference.Provider {
	case "openai":
		if cfg.OpenAIClient.APIKey == "" {
			log.Println("警告：[Config] OpenAI 相容端點的 API Key 未設定，將以空的 Bearer 憑證呼叫。")
		}
	case "gemini":
		if cfg.GeminiClient.APIKey == "" {
			log.Println("警告：[Config] Gemini API Key 未設定！")
		}
	}

	log.Printf("資訊：[Config] 設定載入成功 (provider: %s, model: %s)。\n", cfg.Inference.Provider, cfg.Inference.Model)
	return &cfg, nil
}

// Validate 檢查設定值是否合理
func (c *Config) Validate() error {
	switch c.Inference.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("不支援的推論提供者: %q", c.Inference.Provider)
	}
	switch c.Inference.VerdictStrategy {
	case "substring", "letter-order", "strict":
	default:
		return fmt.Errorf("不支援的答案解析策略: %q", c.Inference.VerdictStrategy)
	}
	if c.Inference.MaxImages <= 0 {
		return fmt.Errorf("inference.maxImages 必須大於 0")
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return fmt.Errorf("inference.timeoutSeconds 必須大於 0")
	}
	if c.Sampler.TimeoutSeconds <= 0 {
		return fmt.Errorf("sampler.timeoutSeconds 必須大於 0")
	}
	if c.Sampler.MaxWidth <= 0 || c.Sampler.MaxHeight <= 0 {
		return fmt.Errorf("sampler.maxWidth 與 sampler.maxHeight 必須大於 0")
	}
	if c.Sampler.JPEGQuality < 1 || c.Sampler.JPEGQuality > 100 {
		return fmt.Errorf("sampler.jpegQuality 必須介於 1 到 100 之間")
	}
	if c.Database.Enabled && c.Database.Driver != "mysql" {
		return fmt.Errorf("不支援的資料庫驅動程式: %s", c.Database.Driver)
	}
	if c.Scheduler.Enabled && c.Scheduler.EvaluateCronSpec == "" {
		return fmt.Errorf("已啟用排程但未設定 scheduler.evaluateCronSpec")
	}
	return nil
}
