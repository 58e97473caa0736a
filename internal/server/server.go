// Package server exposes the upload, listing, deletion, and passcode
// endpoints over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"filedrop/internal/app"
	"filedrop/internal/catalog"
	"filedrop/internal/session"
	"filedrop/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	Sessions *session.Issuer

	// MaxUploadBytes caps the request body on uploads. Zero means no cap.
	MaxUploadBytes int64
}

// Server exposes the HTTP endpoints.
type Server struct {
	app            *app.App
	sessions       *session.Issuer
	maxUploadBytes int64
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session issuer is required")
	}
	s := &Server{
		app:            cfg.App,
		sessions:       cfg.Sessions,
		maxUploadBytes: cfg.MaxUploadBytes,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/list", s.handleList)
	s.mux.HandleFunc("/api/delete", s.handleDelete)
	s.mux.HandleFunc("/api/download", s.handleDownload)
	s.mux.HandleFunc("/api/auth/send-otp", s.handleSendOTP)
	s.mux.HandleFunc("/api/auth/verify-otp", s.handleVerifyOTP)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownerID resolves the bearer token to its subject. Requests without a
// token are anonymous; a malformed or expired token is rejected outright
// rather than downgraded to anonymous.
func (s *Server) ownerID(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", true
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}
	subject, err := s.sessions.Verify(strings.TrimSpace(token))
	if err != nil {
		return "", false
	}
	return subject, true
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	owner, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	filename := r.URL.Query().Get("filename")
	if strings.TrimSpace(filename) == "" {
		writeError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	body := io.Reader(r.Body)
	if s.maxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	result, err := s.app.IngestUpload(r.Context(), body, filename, owner)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInfectedContent):
			writeError(w, http.StatusUnprocessableEntity, "file rejected by malware scan")
		case errors.Is(err, app.ErrUploadFailed):
			writeError(w, http.StatusBadGateway, "upload failed")
		default:
			slog.Error("upload failed", "filename", filename, "err", err)
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	owner, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	files, err := s.app.ListFiles(r.Context(), owner)
	if err != nil {
		slog.Error("listing failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	owner, ok := s.ownerID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	key := r.URL.Query().Get("url")
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	if err := s.app.DeleteFile(r.Context(), key, owner); err != nil {
		switch {
		case errors.Is(err, catalog.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "not the owner of this file")
		default:
			slog.Error("delete failed", "key", key, "err", err)
			writeError(w, http.StatusInternalServerError, "failed to delete file")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	key := r.URL.Query().Get("url")
	if strings.TrimSpace(key) == "" {
		writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	body, err := s.app.FetchFile(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("download interrupted", "key", key, "err", err)
	}
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req sendOTPRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.IssueOTP(r.Context(), req.Phone); err != nil {
		switch {
		case errors.Is(err, app.ErrTooManySends):
			writeError(w, http.StatusTooManyRequests, "too many codes requested, try again later")
		default:
			slog.Error("passcode issue failed", "err", err)
			writeError(w, http.StatusBadRequest, "failed to send code")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req verifyOTPRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := s.app.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCode):
			writeError(w, http.StatusUnauthorized, "invalid or expired code")
		default:
			slog.Error("passcode verify failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to verify code")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
