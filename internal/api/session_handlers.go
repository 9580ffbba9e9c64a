package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/comicdl/comicdl/internal/metrics"
)

type proxyRequest struct {
	Proxy string `json:"proxy"`
}

func (s *Server) setProxy(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.svc.Sessions().SetProxy(site, req.Proxy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site": site, "proxy": req.Proxy})
}

func (s *Server) getProxy(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	writeJSON(w, http.StatusOK, map[string]string{
		"site":  site,
		"proxy": s.svc.Sessions().Proxy(site),
	})
}

func (s *Server) getCookies(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	var buf bytes.Buffer
	if err := s.svc.Sessions().ExportCookies(site, &buf); err != nil {
		s.logger.Error("export cookies failed", zap.String("site", site), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) setCookies(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	if err := s.svc.Sessions().LoadCookies(site, r.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site": site, "status": "cookies updated"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	err := s.svc.Login(r.Context(), site)
	metrics.ObserveCrawlOp(site, "login", err)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"site": site, "status": "logged in"})
}
