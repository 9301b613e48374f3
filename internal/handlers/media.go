package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"inkpost/internal/httputil"
	"inkpost/internal/middleware"
	"inkpost/internal/models"
	"inkpost/internal/policy"
	"inkpost/internal/service"
	"inkpost/internal/storage"
)

const (
	// thumbMaxWidth is the maximum thumbnail width in pixels.
	thumbMaxWidth = 400

	// thumbQuality is the JPEG quality for generated thumbnails.
	thumbQuality = 80

	// maxImagePixels caps the number of pixels to prevent memory bombs.
	// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
	maxImagePixels = 100_000_000

	msgFileNotFound = "File not found"
)

// allowedMediaTypes defines MIME types accepted for upload. Uploads are
// served from the API origin, so nothing that can carry script (SVG, HTML)
// is accepted.
var allowedMediaTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// thumbableTypes are image types that support thumbnail generation.
// GIF is excluded to preserve animation.
var thumbableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Media handles image and document uploads, such as post featured images.
type Media struct {
	media    service.MediaRepository
	backend  storage.Backend
	maxBytes int64
	now      func() time.Time
}

// NewMedia creates a new Media handler group. maxBytes caps a single file.
func NewMedia(media service.MediaRepository, backend storage.Backend, maxBytes int64) *Media {
	return &Media{media: media, backend: backend, maxBytes: maxBytes, now: time.Now}
}

// mediaView is the upload response body.
type mediaView struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	HumanSize    string    `json:"humanSize"`
	IsImage      bool      `json:"isImage"`
	URL          string    `json:"url"`
	ThumbURL     string    `json:"thumbUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h *Media) view(m *models.Media) mediaView {
	v := mediaView{
		ID:           m.ID,
		Filename:     m.Filename,
		OriginalName: m.OriginalName,
		ContentType:  m.ContentType,
		Size:         m.SizeBytes,
		HumanSize:    m.HumanSize(),
		IsImage:      m.IsImage(),
		URL:          h.backend.URL(m.StorageKey),
		CreatedAt:    m.CreatedAt,
	}
	if m.ThumbKey != nil {
		v.ThumbURL = h.backend.URL(*m.ThumbKey)
	}
	return v
}

// Upload stores a multipart "file" field and records its metadata.
func (h *Media) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		httputil.Error(w, http.StatusUnauthorized, policy.MsgNoToken)
		return
	}
	tooLarge := fmt.Sprintf("File too large. Maximum size is %d MB.", h.maxBytes>>20)

	// Limit request body to maxBytes plus some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
			return
		}
		httputil.Error(w, http.StatusBadRequest, "Expected a multipart form upload.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		httputil.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}

	// Read the entire file into memory for upload and thumbnail generation.
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		httputil.WriteErr(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(data)) > h.maxBytes {
		httputil.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
		return
	}

	// Trust the bytes, not the client's Content-Type or extension.
	detected := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(detected.String(), ";")
	if !allowedMediaTypes[contentType] {
		httputil.Error(w, http.StatusBadRequest, fmt.Sprintf("File type %q is not allowed.", contentType))
		return
	}

	now := h.now().UTC()
	fileID := uuid.New().String()
	ext := detected.Extension()
	key := fmt.Sprintf("media/%d/%02d/%s%s", now.Year(), now.Month(), fileID, ext)

	ctx := r.Context()
	if err := h.backend.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		httputil.WriteErr(w, r, fmt.Errorf("store upload: %w", err))
		return
	}

	// Generate and upload thumbnail for supported image types.
	var thumbKey *string
	if thumbableTypes[contentType] {
		thumbData, err := generateThumbnail(bytes.NewReader(data), thumbMaxWidth)
		if err != nil {
			slog.Warn("thumbnail generation failed", "error", err, "key", key)
		} else if thumbData != nil {
			tk := fmt.Sprintf("media/%d/%02d/%s_thumb.jpg", now.Year(), now.Month(), fileID)
			if err := h.backend.Put(ctx, tk, "image/jpeg", bytes.NewReader(thumbData), int64(len(thumbData))); err != nil {
				slog.Warn("thumbnail upload failed", "error", err, "key", tk)
			} else {
				thumbKey = &tk
			}
		}
	}

	created, err := h.media.Create(ctx, &models.Media{
		Filename:     fileID + ext,
		OriginalName: header.Filename,
		ContentType:  contentType,
		SizeBytes:    int64(len(data)),
		StorageKey:   key,
		ThumbKey:     thumbKey,
		UploaderID:   user.ID,
	})
	if err != nil {
		h.removeObjects(ctx, key, thumbKey)
		httputil.WriteErr(w, r, fmt.Errorf("save media: %w", err))
		return
	}

	slog.Info("media uploaded", "id", created.ID, "key", key, "backend", h.backend.Name(), "size", created.SizeBytes)
	httputil.Data(w, http.StatusCreated, h.view(created))
}

// Get returns an upload's metadata and URLs.
func (h *Media) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.find(w, r)
	if !ok {
		return
	}
	httputil.Data(w, http.StatusOK, h.view(m))
}

// Delete removes an upload. Only the uploader or an admin may delete.
func (h *Media) Delete(w http.ResponseWriter, r *http.Request) {
	m, ok := h.find(w, r)
	if !ok {
		return
	}
	if err := policy.CanDeleteMedia(middleware.UserFromCtx(r.Context()), m.UploaderID); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	// Delete from the store first (returns the row for object cleanup).
	deleted, err := h.media.Delete(r.Context(), m.ID)
	if err != nil {
		httputil.WriteErr(w, r, fmt.Errorf("delete media: %w", err))
		return
	}
	if deleted == nil {
		httputil.Error(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	h.removeObjects(r.Context(), deleted.StorageKey, deleted.ThumbKey)
	httputil.OK(w, http.StatusOK, httputil.Fields{"message": "File deleted successfully"})
}

func (h *Media) find(w http.ResponseWriter, r *http.Request) (*models.Media, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, msgFileNotFound)
		return nil, false
	}
	m, err := h.media.FindByID(r.Context(), id)
	if err != nil {
		httputil.WriteErr(w, r, fmt.Errorf("find media: %w", err))
		return nil, false
	}
	if m == nil {
		httputil.Error(w, http.StatusNotFound, msgFileNotFound)
		return nil, false
	}
	return m, true
}

// removeObjects deletes stored objects best-effort; failures are logged.
func (h *Media) removeObjects(ctx context.Context, key string, thumbKey *string) {
	if err := h.backend.Delete(ctx, key); err != nil {
		slog.Warn("media original delete failed", "error", err, "key", key)
	}
	if thumbKey != nil {
		if err := h.backend.Delete(ctx, *thumbKey); err != nil {
			slog.Warn("media thumbnail delete failed", "error", err, "key", *thumbKey)
		}
	}
}

// generateThumbnail creates a JPEG thumbnail from an image, constrained
// to maxWidth while preserving aspect ratio. Returns nil if the image is
// already smaller than maxWidth.
func generateThumbnail(src io.ReadSeeker, maxWidth int) ([]byte, error) {
	// Decode config first to check dimensions without full decode.
	imgCfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Check for image bombs.
	if int64(imgCfg.Width)*int64(imgCfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", imgCfg.Width, imgCfg.Height, maxImagePixels)
	}

	// Skip thumbnail if image is already small enough.
	if imgCfg.Width <= maxWidth {
		return nil, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Calculate thumbnail dimensions preserving aspect ratio.
	bounds := img.Bounds()
	ratio := float64(maxWidth) / float64(bounds.Dx())
	newWidth := maxWidth
	newHeight := max(int(float64(bounds.Dy())*ratio), 1)

	// Resize using CatmullRom (high quality).
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	return buf.Bytes(), nil
}
