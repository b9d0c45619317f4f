package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/repository"
	"github.com/igmahardika/antic-sub002/internal/service"
)

// maxUploadBytes 上传文件上限（50MB，源表动辄数万行）
const maxUploadBytes = 50 << 20

// IncidentHandler 工单导入、查询与维护 Handler
type IncidentHandler struct {
	importSvc   service.ImportService
	incidentSvc service.IncidentService
	recalcSvc   service.RecalcService
	statsSvc    service.StatsService
	logger      *zap.Logger
}

// NewIncidentHandler 创建工单 Handler
func NewIncidentHandler(
	importSvc service.ImportService,
	incidentSvc service.IncidentService,
	recalcSvc service.RecalcService,
	statsSvc service.StatsService,
	logger *zap.Logger,
) *IncidentHandler {
	return &IncidentHandler{
		importSvc:   importSvc,
		incidentSvc: incidentSvc,
		recalcSvc:   recalcSvc,
		statsSvc:    statsSvc,
		logger:      logger,
	}
}

// ServeIncidents /api/v1/incidents 按方法分发
func (h *IncidentHandler) ServeIncidents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodDelete:
		h.DeleteAll(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Upload 上传 xlsx 并导入
func (h *IncidentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusOK, Fail("failed to parse form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("file not found in request"))
		return
	}
	defer file.Close()

	result, err := h.importSvc.ImportWorkbook(ctx, service.ImportRequest{
		FileName: header.Filename,
		FileSize: header.Size,
		Reader:   file,
	})
	if err != nil {
		h.logger.Error("ImportWorkbook failed",
			zap.String("file_name", header.Filename), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("import failed: %v", err)))
		return
	}

	h.statsSvc.Invalidate(ctx)
	writeJSON(w, http.StatusOK, Ok(result))
}

// List 条件查询工单
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := service.ListIncidentsRequest{
		Filters: repository.IncidentFilters{
			Search:   q.Get("search"),
			Status:   q.Get("status"),
			Priority: q.Get("priority"),
			Site:     q.Get("site"),
			Severity: q.Get("severity"),
			DateFrom: q.Get("date_from"),
			DateTo:   q.Get("date_to"),
		},
		Page: parseInt(q.Get("page"), 1),
		Size: parseInt(q.Get("size"), 50),
	}

	resp, err := h.incidentSvc.ListIncidents(ctx, req)
	if err != nil {
		h.logger.Error("ListIncidents failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list incidents: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Stats 统计（带缓存）
func (h *IncidentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsSvc.GetStats(r.Context())
	if err != nil {
		h.logger.Error("GetStats failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to compute stats: %v", err)))
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

// Recalculate 全量重算派生指标
func (h *IncidentHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fixed, err := h.recalcSvc.Recalculate(ctx)
	if err != nil {
		h.logger.Error("Recalculate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("recalculation failed: %v", err)))
		return
	}
	h.statsSvc.Invalidate(ctx)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"fixed_count": fixed}))
}

// CleanDuplicates 历史数据去重
func (h *IncidentHandler) CleanDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	removed, err := h.incidentSvc.CleanDuplicates(ctx)
	if err != nil {
		h.logger.Error("CleanDuplicates failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("cleanup failed: %v", err)))
		return
	}
	h.statsSvc.Invalidate(ctx)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed_count": removed}))
}

// DeleteAll 清空工单表
func (h *IncidentHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deleted, err := h.incidentSvc.DeleteAll(ctx)
	if err != nil {
		h.logger.Error("DeleteAll failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to delete incidents: %v", err)))
		return
	}
	h.statsSvc.Invalidate(ctx)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted_count": deleted}))
}

// Export 导出全量工单
func (h *IncidentHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.incidentSvc.ExportAll(ctx)
	if err != nil {
		h.logger.Error("ExportAll failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to export incidents: %v", err)))
		return
	}

	data := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		data = append(data, rec.ToJSON())
	}
	excelData, err := GenerateIncidentExport(data)
	if err != nil {
		h.logger.Error("GenerateIncidentExport failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=incidents-export.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}

// ImportTemplate 获取导入模板
func (h *IncidentHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	excelData, err := GenerateIncidentImportTemplate()
	if err != nil {
		h.logger.Error("GenerateIncidentImportTemplate failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=incidents-import-template.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}
