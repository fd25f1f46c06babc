package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// JsonNullString 讓可為空的文字欄位 (例如執行錯誤訊息) 同時支援資料庫與 JSON。
type JsonNullString struct {
	sql.NullString
}

// NullStringFromError 有錯誤時填入錯誤訊息，否則為 null
func NullStringFromError(err error) JsonNullString {
	if err == nil {
		return JsonNullString{}
	}
	return JsonNullString{NullString: sql.NullString{String: err.Error(), Valid: true}}
}

func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: 無法解析 '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}
