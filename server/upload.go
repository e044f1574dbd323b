package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/exgaso/armory-http/pkg/utils"
	"github.com/exgaso/armory-http/progress"
)

// handleUpload streams a multipart POST body into the upload directory.
// The multipart reader is consumed part by part so progress can be shown
// while bytes are still arriving; the body is never buffered whole.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	rh := newReqHelper(w, r, s)
	rh.attachReqId()
	rh.openConn()
	defer rh.closeConn()

	mr, err := r.MultipartReader()
	if err != nil {
		rh.error("Bad Request", err, http.StatusBadRequest)
		return
	}

	part, err := findFilePart(mr)
	if err != nil {
		rh.error("Missing file part", err, http.StatusBadRequest)
		return
	}
	defer part.Close()

	fileName, err := utils.SanitizeFilename(part.FileName())
	if err != nil {
		rh.error("Invalid filename", err, http.StatusBadRequest)
		return
	}

	// an existing file with the same name is overwritten, last writer wins
	dstPath := filepath.Join(s.cfg.UploadDir, fileName)
	dst, err := os.Create(dstPath)
	if err != nil {
		rh.internalServerError(err)
		return
	}
	defer dst.Close()

	slog.InfoContext(rh.ctx, "UPLOAD START", "file", fileName, "from", part.FileName())

	// Content-Length covers the multipart envelope, not the file bytes,
	// so the transfer total is reported as unknown.
	reporter := s.progress.NewTransfer(fileName, progress.UnknownTotal, progress.Inbound)
	rh.publishUploadStart(fileName)

	transferStart := time.Now()
	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				reporter.Abort()
				rh.internalServerError(writeErr)
				return
			}
			written += int64(n)
			reporter.Report(written)
			rh.publishFileProgress(written)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// client went away mid-upload; keep what arrived and move on
			slog.WarnContext(rh.ctx, "Upload aborted by client", "file", fileName, "written", written, "error", readErr)
			reporter.Abort()
			return
		}
	}
	reporter.Finish()

	slog.InfoContext(rh.ctx, "UPLOAD COMPLETE",
		"file", fileName,
		"written", written,
		"duration", time.Since(transferStart))

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "uploaded %s (%d bytes)\n", fileName, written)
}

var errNoFilePart = errors.New("no file part in multipart body")

// findFilePart walks the multipart body until it reaches the part named
// "file" that carries a filename. Preceding parts are drained and closed.
func findFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}
