package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/service"
)

// UploadsHandler 上传历史 Handler
type UploadsHandler struct {
	importSvc service.ImportService
	statsSvc  service.StatsService
	logger    *zap.Logger
}

// NewUploadsHandler 创建上传历史 Handler
func NewUploadsHandler(importSvc service.ImportService, statsSvc service.StatsService, logger *zap.Logger) *UploadsHandler {
	return &UploadsHandler{importSvc: importSvc, statsSvc: statsSvc, logger: logger}
}

// ListUploads 上传历史（零记录会话不展示）
func (h *UploadsHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.importSvc.ListUploads(r.Context(), r.URL.Query().Get("file_name"))
	if err != nil {
		h.logger.Error("ListUploads failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list uploads: %v", err)))
		return
	}
	items := make([]map[string]any, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, s.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": items, "total": len(items)}))
}

// DeleteByFile 按文件名删除批次（会话 + 记录级联）
func (h *UploadsHandler) DeleteByFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fileName := r.URL.Query().Get("file_name")
	if fileName == "" {
		writeJSON(w, http.StatusOK, Fail("file_name is required"))
		return
	}

	result, err := h.importSvc.DeleteByFile(ctx, fileName)
	if err != nil {
		h.logger.Error("DeleteByFile failed",
			zap.String("file_name", fileName), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to delete by file: %v", err)))
		return
	}
	h.statsSvc.Invalidate(ctx)
	writeJSON(w, http.StatusOK, Ok(result))
}

// CleanupEmpty 清理零记录会话（历史列表里看不到的残留）
func (h *UploadsHandler) CleanupEmpty(w http.ResponseWriter, r *http.Request) {
	removed, err := h.importSvc.CleanupEmptySessions(r.Context())
	if err != nil {
		h.logger.Error("CleanupEmptySessions failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to cleanup sessions: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed_sessions": removed}))
}
