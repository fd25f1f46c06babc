package models

import (
	"strings"
	"time"
)

// Verdict 模型回答解析後的結果
type Verdict string

const (
	VerdictA       Verdict = "A"
	VerdictB       Verdict = "B"
	VerdictC       Verdict = "C"
	VerdictD       Verdict = "D"
	VerdictUnknown Verdict = "Unknown" // 編碼失敗、呼叫失敗、逾時或回應中找不到字母
)

// OptionLetters 選項字母的固定順序，提示詞與回答解析都依此順序
var OptionLetters = []Verdict{VerdictA, VerdictB, VerdictC, VerdictD}

// GradeResult 批改結果
type GradeResult string

const (
	ResultCorrect   GradeResult = "Correct"
	ResultIncorrect GradeResult = "Incorrect"
)

// Grade 比對模型答案與正確答案。
// 正確答案必須恰好只有一個字母且與模型答案相同 (不分大小寫) 才算正確；
// 多個正確答案 (例如 "A,B") 一律判為錯誤，這是沿用既有行為，並未拆分比對。
func Grade(verdict Verdict, key AnswerKey) GradeResult {
	if len(key.Letters) != 1 {
		return ResultIncorrect
	}
	if strings.EqualFold(string(verdict), key.Letters[0]) {
		return ResultCorrect
	}
	return ResultIncorrect
}

// QuestionResult 單題的評測結果
type QuestionResult struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer AnswerKey         `json:"correct_answer"`
	ModelOutput   Verdict           `json:"model_output"`
	Result        GradeResult       `json:"result"`
}

// VideoResult 單一影片的評測結果，只有至少一題被批改的影片才會出現在報告中
type VideoResult struct {
	VideoPath string           `json:"video_path"`
	Questions []QuestionResult `json:"questions"`
}

// AggregateReport 整體評測報告
type AggregateReport struct {
	TotalQuestions int           `json:"total_questions"`
	CorrectCount   int           `json:"correct_count"`
	Accuracy       float64       `json:"accuracy"`
	Videos         []VideoResult `json:"videos"`
}

// NewAggregateReport 計算準確率；總題數為 0 時準確率為 0
func NewAggregateReport(videos []VideoResult, total, correct int) *AggregateReport {
	if videos == nil {
		videos = []VideoResult{}
	}
	var accuracy float64
	if total > 0 {
		accuracy = float64(correct) / float64(total) * 100
	}
	return &AggregateReport{
		TotalQuestions: total,
		CorrectCount:   correct,
		Accuracy:       accuracy,
		Videos:         videos,
	}
}

// RunSummary 記錄一次評測執行的中繼資料，供歸檔與網頁顯示
type RunSummary struct {
	RunID          string           `json:"run_id"`
	Params         EvaluationParams `json:"params"`
	Provider       string           `json:"provider"`
	Model          string           `json:"model"`
	TotalQuestions int              `json:"total_questions"`
	CorrectCount   int              `json:"correct_count"`
	Accuracy       float64          `json:"accuracy"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	ErrorMessage   JsonNullString   `json:"error_message"`
}
