package services

import (
	"fmt"
	"regexp"
	"strings"

	"VideoQA-eval/internal/models"
)

// VerdictExtractor 從模型的自由文字回應中取出選項字母
type VerdictExtractor interface {
	Extract(text string) models.Verdict
}

// SubstringExtractor 預設策略：將回應轉成大寫後，位置最前面的 A/B/C/D 即為答案。
// 字母出現在不相關的單字內也算數，例如 "BELIEVE" 會得到 B。
type SubstringExtractor struct{}

func (SubstringExtractor) Extract(text string) models.Verdict {
	upper := strings.ToUpper(text)
	if i := strings.IndexAny(upper, "ABCD"); i >= 0 {
		return models.Verdict(upper[i : i+1])
	}
	return models.VerdictUnknown
}

// LetterOrderExtractor 依 A、B、C、D 的固定順序檢查大寫回應是否包含該字母，第一個命中的即為答案
type LetterOrderExtractor struct{}

func (LetterOrderExtractor) Extract(text string) models.Verdict {
	upper := strings.ToUpper(text)
	for _, letter := range models.OptionLetters {
		if strings.Contains(upper, string(letter)) {
			return letter
		}
	}
	return models.VerdictUnknown
}

var standaloneLetter = regexp.MustCompile(`\b[ABCD]\b`)

// StrictExtractor 只接受獨立的大寫字母 (前後不接其他英數字)，取位置最前面者
type StrictExtractor struct{}

func (StrictExtractor) Extract(text string) models.Verdict {
	if match := standaloneLetter.FindString(text); match != "" {
		return models.Verdict(match)
	}
	return models.VerdictUnknown
}

// NewVerdictExtractor 依設定名稱建立解析策略
func NewVerdictExtractor(name string) (VerdictExtractor, error) {
	switch name {
	case "", "substring":
		return SubstringExtractor{}, nil
	case "letter-order":
		return LetterOrderExtractor{}, nil
	case "strict":
		return StrictExtractor{}, nil
	default:
		return nil, fmt.Errorf("不支援的答案解析策略: %q", name)
	}
}
