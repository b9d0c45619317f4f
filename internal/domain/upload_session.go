package domain

import (
	"database/sql"
	"time"
)

// 上传会话状态
const (
	UploadStatusUploading = "uploading"
	UploadStatusCompleted = "completed"
	UploadStatusFailed    = "failed"
	UploadStatusDeleted   = "deleted"
)

// UploadSession 对应 upload_sessions 表：一次文件导入的元数据。
// IncidentRecord.BatchID 指向 UploadSession.ID，支持按来源文件批量删除。
type UploadSession struct {
	ID           string `db:"id"` // = batch id
	FileName     string `db:"file_name"`
	FileHash     string `db:"file_hash"` // sha256(文件内容)
	FileSize     int64  `db:"file_size"`
	DataType     string `db:"data_type"` // "incident"
	Status       string `db:"status"`
	RecordCount  int    `db:"record_count"`
	SuccessCount int    `db:"success_count"`
	ErrorCount   int    `db:"error_count"`

	UploadedAt  time.Time    `db:"uploaded_at"`
	FinalizedAt sql.NullTime `db:"finalized_at"`
}

// ToJSON 转换为 HTTP 响应格式
func (s *UploadSession) ToJSON() map[string]any {
	m := map[string]any{
		"id":            s.ID,
		"file_name":     s.FileName,
		"file_hash":     s.FileHash,
		"file_size":     s.FileSize,
		"data_type":     s.DataType,
		"status":        s.Status,
		"record_count":  s.RecordCount,
		"success_count": s.SuccessCount,
		"error_count":   s.ErrorCount,
		"uploaded_at":   s.UploadedAt.UTC().Format(time.RFC3339),
	}
	if s.FinalizedAt.Valid {
		m["finalized_at"] = s.FinalizedAt.Time.UTC().Format(time.RFC3339)
	}
	return m
}
