package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 pprof 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterIncidentRoutes 注册工单相关路由
func (r *Router) RegisterIncidentRoutes(h *IncidentHandler, u *UploadsHandler) {
	// list / delete-all 共用一个路径，按方法分发
	r.Handle("/api/v1/incidents", h.ServeIncidents)
	r.Handle("/api/v1/incidents/upload", methodOnly(http.MethodPost, h.Upload))
	r.Handle("/api/v1/incidents/recalculate", methodOnly(http.MethodPost, h.Recalculate))
	r.Handle("/api/v1/incidents/clean-duplicates", methodOnly(http.MethodPost, h.CleanDuplicates))
	r.Handle("/api/v1/incidents/stats", methodOnly(http.MethodGet, h.Stats))
	r.Handle("/api/v1/incidents/export", methodOnly(http.MethodGet, h.Export))
	r.Handle("/api/v1/incidents/import-template", methodOnly(http.MethodGet, h.ImportTemplate))

	r.Handle("/api/v1/uploads", methodOnly(http.MethodGet, u.ListUploads))
	r.Handle("/api/v1/uploads/by-file", methodOnly(http.MethodDelete, u.DeleteByFile))
	r.Handle("/api/v1/uploads/cleanup", methodOnly(http.MethodPost, u.CleanupEmpty))
}

// RegisterHealth 健康检查
func (r *Router) RegisterHealth() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}
