package models

import "errors"

// 各種失敗類型。呼叫端以 errors.Is 判斷後決定退回哪一種哨兵值 (空影格、Unknown、跳過)。
var (
	ErrVideoUnopenable      = errors.New("影片無法開啟")
	ErrZeroFrameRate        = errors.New("影片回報的幀率為 0")
	ErrFrameUnreadable      = errors.New("影格檔案無法讀取")
	ErrNoEncodableFrames    = errors.New("沒有可編碼的影格")
	ErrModelCall            = errors.New("模型呼叫失敗")
	ErrEmptyResponse        = errors.New("模型回應為空")
	ErrDatasetUnreadable    = errors.New("資料集無法讀取或解析")
	ErrReportWrite          = errors.New("報告寫入失敗")
	ErrEvaluationInProgress = errors.New("評測已在進行中")
)
