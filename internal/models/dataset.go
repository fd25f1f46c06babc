package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DatasetEntry 對應資料集 JSON 陣列中的一個影片
type DatasetEntry struct {
	VideoPath string         `json:"video_path"`
	Questions []QuestionSpec `json:"questions"`
}

// QuestionSpec 單一選擇題
type QuestionSpec struct {
	Question      string    `json:"question"`
	Options       OptionSet `json:"options"`
	CorrectAnswer AnswerKey `json:"correct_answer"`
}

// OptionSet 選項字母對應選項文字。
// 資料集中的非字串值 (例如數量題的 2、3) 以原始 JSON 文字保存，null 視為未提供。
type OptionSet map[string]string

// UnmarshalJSON 接受任意 JSON 值作為選項內容
func (o *OptionSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("OptionSet: 期望 JSON 物件，但得到 '%s': %w", string(data), err)
	}
	if raw == nil {
		*o = nil
		return nil
	}
	set := make(OptionSet, len(raw))
	for letter, value := range raw {
		text := strings.TrimSpace(string(value))
		if text == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			text = s
		}
		set[letter] = text
	}
	*o = set
	return nil
}

// Complete 檢查題目、選項、正確答案三者皆非空；缺任一項的題目會被跳過，不計入總數。
func (q QuestionSpec) Complete() bool {
	return q.Question != "" && len(q.Options) > 0 && q.CorrectAnswer.Raw != ""
}

// OptionOrDefault 回傳指定字母的選項文字，缺少時回傳 "Not Provided"。
func (q QuestionSpec) OptionOrDefault(letter string) string {
	if text, ok := q.Options[letter]; ok {
		return text
	}
	return "Not Provided"
}

// AnswerKey 保留資料集中的原始答案字串 (例如 "A" 或 "A,B")，並解析出可接受的字母。
// JSON 可以是字串，也可以是字串陣列 (陣列會以逗號串接成原始格式)。
type AnswerKey struct {
	Raw     string
	Letters []string
}

// NewAnswerKey 由原始字串建立 AnswerKey
func NewAnswerKey(raw string) AnswerKey {
	key := AnswerKey{Raw: raw}
	if raw == "" {
		return key
	}
	for _, part := range strings.Split(raw, ",") {
		key.Letters = append(key.Letters, strings.ToUpper(strings.TrimSpace(part)))
	}
	return key
}

// MarshalJSON 輸出原始字串，讓報告保持與資料集相同的寫法
func (k AnswerKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Raw)
}

// UnmarshalJSON 接受字串、字串陣列或 null
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = AnswerKey{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = NewAnswerKey(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		*k = AnswerKey{}
		return fmt.Errorf("AnswerKey: 期望 JSON 字串或字串陣列，但得到 '%s': %w", string(data), err)
	}
	*k = NewAnswerKey(strings.Join(list, ","))
	return nil
}

// EvaluationParams 一次評測執行的參數 (對應唯一的進入點參數)
type EvaluationParams struct {
	DatasetPath    string  `json:"dataset_path"`
	FrameOutputDir string  `json:"frame_output_dir"`
	ReportPath     string  `json:"report_path"`
	TargetFPS      float64 `json:"target_fps"`
	MaxFrames      int     `json:"max_frames"`
}

// Validate 檢查參數是否可用
func (p EvaluationParams) Validate() error {
	if p.DatasetPath == "" {
		return fmt.Errorf("資料集路徑不得為空")
	}
	if p.FrameOutputDir == "" {
		return fmt.Errorf("影格輸出目錄不得為空")
	}
	if p.ReportPath == "" {
		return fmt.Errorf("報告輸出路徑不得為空")
	}
	if p.TargetFPS <= 0 {
		return fmt.Errorf("取樣頻率必須大於 0 (目前: %v)", p.TargetFPS)
	}
	if p.MaxFrames <= 0 {
		return fmt.Errorf("每部影片最大影格數必須大於 0 (目前: %d)", p.MaxFrames)
	}
	return nil
}
