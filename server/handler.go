package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/exgaso/armory-http/logger"
	"github.com/exgaso/armory-http/pkg/utils"
	"github.com/exgaso/armory-http/progress"
)

const chunkSize = 64 * 1024 // bytes moved per read/write step

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rh := newReqHelper(w, r, s)
	rh.attachReqId()
	rh.openConn()
	defer rh.closeConn()

	absPath, err := utils.SecureJoin(s.cfg.Root, r.URL.Path)
	if errors.Is(err, utils.ErrForbiddenPath) {
		rh.error("FORBIDDEN", err, http.StatusForbidden)
		return
	} else if err != nil {
		rh.internalServerError(err)
		return
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			rh.error("NOT FOUND", err, http.StatusNotFound)
			return
		}
		rh.internalServerError(err)
		return
	}

	// directories are not served, not even as a listing
	if info.IsDir() {
		rh.error("NOT FOUND", nil, http.StatusNotFound)
		return
	}

	file, err := os.Open(absPath)
	if err != nil {
		rh.internalServerError(err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("ETag", fmt.Sprintf(`"%x-%x"`, info.ModTime().Unix(), info.Size()))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	fileName := filepath.Base(absPath)
	transferStart := time.Now()

	slog.InfoContext(rh.ctx, "OK", "path", r.URL.Path, "size", info.Size(), logger.StatusCodeKey, http.StatusOK)

	reporter := s.progress.NewTransfer(fileName, info.Size(), progress.Outbound)
	rh.publishDownloadStart(fileName, info.Size())

	var totalSent int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// client went away mid-stream; nothing left to tell it
				slog.WarnContext(rh.ctx, "Client disconnected", "file", fileName, "sent", totalSent, "error", writeErr)
				reporter.Abort()
				return
			}
			totalSent += int64(n)
			reporter.Report(totalSent)
			rh.publishFileProgress(totalSent)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			slog.ErrorContext(rh.ctx, "Error reading file", "error", readErr, "file", fileName)
			reporter.Abort()
			return
		}
	}
	reporter.Finish()

	slog.InfoContext(rh.ctx, "TRANSFER COMPLETE",
		"file", fileName,
		"sent", totalSent,
		"duration", time.Since(transferStart))
}

type reqHelper struct {
	w   http.ResponseWriter
	r   *http.Request
	ctx context.Context
	srv *Server
}

func newReqHelper(w http.ResponseWriter, r *http.Request, srv *Server) *reqHelper {
	return &reqHelper{
		w:   w,
		r:   r,
		ctx: r.Context(),
		srv: srv,
	}
}

func (h *reqHelper) attachReqId() {
	ctx := context.WithValue(h.ctx, utils.RequestIDKey, uuid.NewString())
	h.r = h.r.WithContext(ctx)
	h.ctx = ctx
}

func (h *reqHelper) reqId() string {
	id, _ := h.ctx.Value(utils.RequestIDKey).(string)
	return id
}

func (h *reqHelper) openConn() {
	clientIP, err := utils.GetClientIP(h.r)
	if err != nil {
		slog.Warn("Failed to get client IP", "error", err)
		clientIP = "unknown"
	}

	clientHost, err := utils.GetClientHostname(h.r)
	if err != nil {
		slog.Warn("Failed to get client hostname", "error", err)
		clientHost = "unknown"
	}

	slog.InfoContext(h.ctx, "REQUEST",
		"clientIP", clientIP,
		"clientHost", clientHost,
		"userAgent", h.r.UserAgent(),
		"method", h.r.Method,
		"path", h.r.URL.Path)

	h.srv.publish(EventConnOpen{
		ConnID: h.reqId(),
		Client: &Client{
			IP:          clientIP,
			Host:        clientHost,
			UserAgent:   h.r.UserAgent(),
			ConnectedAt: time.Now(),
		},
		Time: time.Now(),
	})
}

func (h *reqHelper) closeConn() {
	h.srv.publish(EventConnClose{ConnID: h.reqId(), Time: time.Now()})
}

func (h *reqHelper) publishDownloadStart(fileName string, totalSize int64) {
	h.srv.publish(EventDownloadStart{
		ConnID:    h.reqId(),
		FileName:  fileName,
		TotalSize: totalSize,
		Time:      time.Now(),
	})
}

func (h *reqHelper) publishUploadStart(fileName string) {
	h.srv.publish(EventUploadStart{
		ConnID:   h.reqId(),
		FileName: fileName,
		Time:     time.Now(),
	})
}

func (h *reqHelper) publishFileProgress(sent int64) {
	h.srv.publish(EventFileProgress{
		ConnID: h.reqId(),
		Sent:   sent,
		Time:   time.Now(),
	})
}

func (h *reqHelper) internalServerError(err error) {
	h.error("Internal Server Error", err, http.StatusInternalServerError)
}

func (h *reqHelper) error(msg string, err error, statusCode int) {
	http.Error(h.w, msg, statusCode)
	slog.ErrorContext(h.ctx, msg, logger.StatusCodeKey, statusCode, "error", err)
}
