package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/domain"
	"github.com/igmahardika/antic-sub002/internal/ingest"
	"github.com/igmahardika/antic-sub002/internal/repository"
)

// DefaultChunkSize 批量 upsert 的默认分片大小
const DefaultChunkSize = 500

// previewSize 返回给前端的记录预览条数
const previewSize = 20

// ImportService 导入服务接口
type ImportService interface {
	// ImportWorkbook 解析一个 xlsx 工作簿并批量入库
	ImportWorkbook(ctx context.Context, req ImportRequest) (*ImportResult, error)
	// DeleteByFile 按文件名删除历史批次（会话 + 记录级联）
	DeleteByFile(ctx context.Context, fileName string) (*DeleteByFileResult, error)
	// ListUploads 上传历史（过滤掉零记录会话）
	ListUploads(ctx context.Context, fileName string) ([]*domain.UploadSession, error)
	// CleanupEmptySessions 清理零记录会话，返回删除数
	CleanupEmptySessions(ctx context.Context) (int, error)
}

// importService 导入服务实现
type importService struct {
	incidents repository.IncidentsRepo
	sessions  repository.UploadSessionsRepo
	caps      ingest.Caps
	chunkSize int
	logger    *zap.Logger
}

// NewImportService 创建导入服务
func NewImportService(
	incidents repository.IncidentsRepo,
	sessions repository.UploadSessionsRepo,
	caps ingest.Caps,
	chunkSize int,
	logger *zap.Logger,
) ImportService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &importService{
		incidents: incidents,
		sessions:  sessions,
		caps:      caps,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// ImportRequest 导入请求
type ImportRequest struct {
	FileName string
	FileSize int64
	Reader   io.Reader
}

// ImportResult 导入结果（尽力而为：分片失败不回滚已成功的分片）
type ImportResult struct {
	BatchID         string           `json:"batch_id"`
	SuccessCount    int              `json:"success_count"`
	FailedCount     int              `json:"failed_count"`
	SkippedRows     int              `json:"skipped_rows"`
	TotalRowsInFile int              `json:"total_rows_in_file"`
	Errors          []string         `json:"errors"`
	Preview         []map[string]any `json:"preview"`
}

// DeleteByFileResult 按文件删除的结果
type DeleteByFileResult struct {
	Sessions       int `json:"sessions"`
	DeletedRecords int `json:"deleted_records"`
}

// ImportWorkbook 解析并入库一个工作簿。
//
// 流程：先建 uploading 会话（文件的 sha256 作为去重指纹），解析，
// 补齐 ID/BatchID/ImportedAt，按 chunkSize 顺序分片 BulkPut，
// 最后按计数敲定会话状态。任何分片失败只记入 errors，不中止导入。
func (s *importService) ImportWorkbook(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	// 哈希与解析都要读流，先落到内存
	payload, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	hash := sha256.Sum256(payload)

	session := &domain.UploadSession{
		ID:         uuid.New().String(),
		FileName:   req.FileName,
		FileHash:   hex.EncodeToString(hash[:]),
		FileSize:   req.FileSize,
		DataType:   "incident",
		Status:     domain.UploadStatusUploading,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create upload session: %w", err)
	}

	parsed, err := ingest.ParseWorkbook(bytes.NewReader(payload), s.caps)
	if err != nil {
		s.finalize(ctx, session.ID, domain.UploadStatusFailed, 0, 0, 0)
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}

	importedAt := time.Now().UTC()
	for _, rec := range parsed.Records {
		rec.ID = domain.IncidentID(rec.CaseNumber, rec.StartTime)
		rec.BatchID = session.ID
		rec.ImportedAt = importedAt
	}

	result := &ImportResult{
		BatchID:         session.ID,
		SkippedRows:     parsed.SkippedRows,
		TotalRowsInFile: parsed.TotalRows,
		Errors:          parsed.Errors,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	// 行级错误已占掉 failed 计数的一部分
	result.FailedCount = parsed.TotalRows - len(parsed.Records) - parsed.SkippedRows

	for start := 0; start < len(parsed.Records); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(parsed.Records) {
			end = len(parsed.Records)
		}
		chunk := parsed.Records[start:end]
		if err := s.incidents.BulkPut(ctx, chunk); err != nil {
			result.FailedCount += len(chunk)
			result.Errors = append(result.Errors,
				fmt.Sprintf("chunk %d-%d: %v", start+1, end, err))
			s.logger.Error("bulk upsert chunk failed",
				zap.String("batch_id", session.ID),
				zap.Int("chunk_start", start),
				zap.Error(err))
			continue
		}
		result.SuccessCount += len(chunk)
	}

	for i := 0; i < len(parsed.Records) && i < previewSize; i++ {
		result.Preview = append(result.Preview, parsed.Records[i].ToJSON())
	}

	status := domain.UploadStatusCompleted
	if result.SuccessCount == 0 && result.FailedCount > 0 {
		status = domain.UploadStatusFailed
	}
	s.finalize(ctx, session.ID, status,
		result.SuccessCount+result.FailedCount, result.SuccessCount, result.FailedCount)

	s.logger.Info("workbook imported",
		zap.String("file_name", req.FileName),
		zap.String("batch_id", session.ID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", result.SkippedRows))
	return result, nil
}

// DeleteByFile 删除某文件名下全部批次及其记录。
// 走 GetByFileName 逐个摘除，零记录的失败会话也能删掉。
func (s *importService) DeleteByFile(ctx context.Context, fileName string) (*DeleteByFileResult, error) {
	res := &DeleteByFileResult{}
	for {
		sess, err := s.sessions.GetByFileName(ctx, fileName, "incident")
		if err == repository.ErrSessionNotFound {
			break
		}
		if err != nil {
			return res, fmt.Errorf("failed to look up sessions for %s: %w", fileName, err)
		}
		deleted, err := s.incidents.DeleteByBatch(ctx, sess.ID)
		if err != nil {
			return res, fmt.Errorf("failed to delete records of batch %s: %w", sess.ID, err)
		}
		res.DeletedRecords += deleted
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			return res, fmt.Errorf("failed to delete session %s: %w", sess.ID, err)
		}
		res.Sessions++
	}
	s.logger.Info("batches deleted by file",
		zap.String("file_name", fileName),
		zap.Int("sessions", res.Sessions),
		zap.Int("records", res.DeletedRecords))
	return res, nil
}

// ListUploads 上传历史
func (s *importService) ListUploads(ctx context.Context, fileName string) ([]*domain.UploadSession, error) {
	return s.sessions.List(ctx, fileName, "incident")
}

// CleanupEmptySessions 零记录会话在历史里不可见，定期清掉
func (s *importService) CleanupEmptySessions(ctx context.Context) (int, error) {
	removed, err := s.sessions.DeleteEmpty(ctx, "incident")
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup empty sessions: %w", err)
	}
	if removed > 0 {
		s.logger.Info("empty upload sessions removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *importService) finalize(ctx context.Context, id, status string, record, success, failed int) {
	err := s.sessions.Finalize(ctx, id, repository.SessionFinalize{
		Status:       status,
		RecordCount:  record,
		SuccessCount: success,
		ErrorCount:   failed,
	})
	if err != nil {
		s.logger.Warn("failed to finalize upload session",
			zap.String("session_id", id), zap.Error(err))
	}
}
