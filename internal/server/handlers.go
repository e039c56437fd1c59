package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mpalmer/clipstitch/internal/artifact"
	"github.com/mpalmer/clipstitch/internal/job"
	"github.com/mpalmer/clipstitch/internal/media"
	"github.com/mpalmer/clipstitch/internal/storage"
	"github.com/mpalmer/clipstitch/internal/upload"
)

// multipartMemory is the in-memory threshold for multipart parsing; larger
// parts spill to disk.
const multipartMemory = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.Service
	uploads   *upload.Validator
	artifacts *artifact.Store
	store     storage.Storage
	validator *validator.Validate
	logger    *slog.Logger
	health    *HealthProbe
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, uploads *upload.Validator, artifacts *artifact.Store, store storage.Storage, health *HealthProbe, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		uploads:   uploads,
		artifacts: artifacts,
		store:     store,
		validator: validator.New(),
		logger:    logger,
		health:    health,
	}
}

// MergeVideos handles POST /merge-videos requests.
func (h *Handlers) MergeVideos(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, statusForBodyError(err), "invalid multipart form: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	form := mergeForm{
		Method:     formValue(r, "method", "concatenate"),
		OutputName: r.FormValue("output_name"),
	}
	if err := h.validator.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	// Validate metadata before persisting anything.
	metas := make([]upload.FileMeta, 0, len(files))
	for _, fh := range files {
		metas = append(metas, upload.FileMeta{Name: fh.Filename, Size: fh.Size})
	}
	if err := h.uploads.Validate(upload.KindMerge, metas); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	paths, err := h.saveUploads(r, files)
	if err != nil {
		h.logger.Error("persist uploads", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	result, err := h.service.Merge(r.Context(), job.MergeInput{
		Inputs:     paths,
		Method:     media.MergeMethod(form.Method),
		OutputName: form.OutputName,
	})
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Success:     true,
		Message:     "Videos merged successfully!",
		DownloadURL: "/download/" + result.ArtifactToken,
		Filename:    result.ArtifactToken,
		JobID:       result.ID,
		S3URL:       result.ArtifactURL,
	})
}

// ConvertAudio handles POST /convert-audio requests.
func (h *Handlers) ConvertAudio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, statusForBodyError(err), "invalid multipart form: "+err.Error())
		return
	}
	defer cleanupMultipart(r)

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	fh := files[0]

	form := convertForm{
		Width:      formInt(r, "resolution_width", 1920),
		Height:     formInt(r, "resolution_height", 1080),
		FPS:        formInt(r, "fps", 30),
		ColorR:     formInt(r, "color_r", 0),
		ColorG:     formInt(r, "color_g", 0),
		ColorB:     formInt(r, "color_b", 0),
		OutputName: r.FormValue("output_name"),
	}
	if err := h.validator.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	meta := []upload.FileMeta{{Name: fh.Filename, Size: fh.Size}}
	if err := h.uploads.Validate(upload.KindConvert, meta); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	paths, err := h.saveUploads(r, []*multipart.FileHeader{fh})
	if err != nil {
		h.logger.Error("persist upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	result, err := h.service.Convert(r.Context(), job.ConvertInput{
		Input:      paths[0],
		Width:      form.Width,
		Height:     form.Height,
		FPS:        form.FPS,
		ColorR:     form.ColorR,
		ColorG:     form.ColorG,
		ColorB:     form.ColorB,
		OutputName: form.OutputName,
	})
	if err != nil {
		h.writeJobError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProcessResponse{
		Success:     true,
		Message:     "Audio converted to video successfully!",
		DownloadURL: "/download/" + result.ArtifactToken,
		Filename:    result.ArtifactToken,
		JobID:       result.ID,
		S3URL:       result.ArtifactURL,
	})
}

// Download handles GET /download/{token} requests by streaming the stored
// artifact as an attachment.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	path, err := h.artifacts.Resolve(token)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) || errors.Is(err, artifact.ErrInvalidToken) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("resolve artifact",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "error downloading file")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", token))
	http.ServeFile(w, r, path)
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.health.snapshot())
}

// saveUploads streams each multipart file to the upload staging directory
// and returns the ordered paths. On failure, already-saved files are removed.
func (h *Handlers) saveUploads(r *http.Request, files []*multipart.FileHeader) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			_ = h.store.RemoveUploads(r.Context(), paths)
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}

		path, err := h.store.SaveUpload(r.Context(), upload.SanitizeName(fh.Filename), f)
		_ = f.Close()
		if err != nil {
			_ = h.store.RemoveUploads(r.Context(), paths)
			return nil, fmt.Errorf("%w: save upload %s: %w", job.ErrStorageError, fh.Filename, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// writeJobError maps a job execution error to an HTTP response. Processing
// failures get a generic message; the detail has already been logged by the
// service.
func (h *Handlers) writeJobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, job.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "processing timed out")
	case errors.Is(err, media.ErrTooManyOverlays),
		errors.Is(err, media.ErrUnknownMethod),
		errors.Is(err, media.ErrInvalidDimensions),
		errors.Is(err, media.ErrInvalidFrameRate),
		errors.Is(err, media.ErrInvalidColor):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, job.ErrStorageError):
		writeError(w, http.StatusInternalServerError, "storage error")
	default:
		writeError(w, http.StatusInternalServerError, "failed to process media")
	}
}

// statusForError maps validator rejections to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, upload.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, upload.ErrFileTooLarge), errors.Is(err, upload.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrInsufficientInputs):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// statusForBodyError distinguishes the MaxBytesReader limit from malformed
// multipart bodies.
func statusForBodyError(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func formInt(r *http.Request, key string, fallback int) int {
	v := r.FormValue(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1 // fails struct validation with a 400
	}
	return n
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   message,
	})
}
