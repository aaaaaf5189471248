package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/services/batch"
)

// maxBatchBytes bounds uploaded batch files
const maxBatchBytes = 10 << 20

// BatchRunner runs a CSV batch
type BatchRunner interface {
	Run(ctx context.Context, in io.Reader, out io.Writer) error
}

// BatchHandler serves the batch endpoint
type BatchHandler struct {
	runner BatchRunner
	logger arbor.ILogger
}

// NewBatchHandler creates the handler
func NewBatchHandler(runner BatchRunner, logger arbor.ILogger) *BatchHandler {
	return &BatchHandler{runner: runner, logger: logger}
}

// RunHandler handles POST /api/batch. The CSV comes either as the
// multipart field "file" or as the raw request body. The response is
// the outcome CSV.
func (h *BatchHandler) RunHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBytes)

	in, err := batchInput(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer in.Close()

	var out bytes.Buffer
	if err := h.runner.Run(r.Context(), in, &out); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, batch.ErrTooManyRows) || errors.Is(err, batch.ErrInvalidCSV) {
			status = http.StatusBadRequest
		}
		h.logger.Warn().Err(err).Msg("Batch rejected")
		WriteError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"batch-%s.csv\"", time.Now().UTC().Format("20060102-150405")))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Bytes())
}

func batchInput(r *http.Request) (io.ReadCloser, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing multipart field \"file\": %w", err)
		}
		return file, nil
	}
	return r.Body, nil
}
