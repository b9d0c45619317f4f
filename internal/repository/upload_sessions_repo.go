package repository

import (
	"context"
	"errors"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// ErrSessionNotFound 按文件名/scope 找不到上传会话
var ErrSessionNotFound = errors.New("upload session not found")

// SessionFinalize finalize 时允许更新的字段
type SessionFinalize struct {
	Status       string
	RecordCount  int
	SuccessCount int
	ErrorCount   int
}

// UploadSessionsRepo 上传会话存储协作方
type UploadSessionsRepo interface {
	Create(ctx context.Context, s *domain.UploadSession) error
	Finalize(ctx context.Context, id string, fin SessionFinalize) error
	// List 按 fileName 和/或 dataType 过滤；空串表示不过滤。
	// recordCount = 0 的会话不出现在历史里。
	List(ctx context.Context, fileName, dataType string) ([]*domain.UploadSession, error)
	GetByFileName(ctx context.Context, fileName, dataType string) (*domain.UploadSession, error)
	Delete(ctx context.Context, id string) error
	// DeleteEmpty 清理零记录会话，返回删除数
	DeleteEmpty(ctx context.Context, dataType string) (int, error)
}
