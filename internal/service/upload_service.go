package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"forum-backend/internal/model"
	"forum-backend/internal/storage"
	"forum-backend/internal/util"
	"forum-backend/pkg/apierror"
)

const (
	AttachmentPrefix     = "attachments"
	ProfilePicturePrefix = "profile-pictures"

	profilePictureMaxEdge = 512
	maxSourcePixels       = 40_000_000
)

// UploadService validates uploads against an allow-list and keeps them in a blob store.
type UploadService struct {
	blobs storage.BlobStore
}

func NewUploadService(blobs storage.BlobStore) *UploadService {
	return &UploadService{blobs: blobs}
}

// readUpload reads r fully, rejecting it once it outgrows every rule, and
// returns the rule matching both the extension and the sniffed content.
func readUpload(rules []util.UploadRule, filename string, r io.Reader) ([]byte, util.UploadRule, error) {
	limit := util.MaxSize(rules)
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, util.UploadRule{}, tooLarge(limit)
		}
		return nil, util.UploadRule{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, util.UploadRule{}, apierror.BadRequest("file is empty", filename)
	}
	if int64(len(data)) > limit {
		return nil, util.UploadRule{}, tooLarge(limit)
	}

	sniffed := util.DetectMIME(data)
	rule, ok := util.MatchUpload(rules, filename, sniffed)
	if !ok {
		return nil, util.UploadRule{}, apierror.BadRequest("file type is not allowed", sniffed)
	}
	if int64(len(data)) > rule.MaxSize {
		return nil, util.UploadRule{}, tooLarge(rule.MaxSize)
	}

	return data, rule, nil
}

func tooLarge(limit int64) error {
	return apierror.New("FILE_TOO_LARGE", "file exceeds the size limit", fmt.Sprintf("max %d bytes", limit), http.StatusRequestEntityTooLarge)
}

func (s *UploadService) StoreAttachment(ctx context.Context, filename string, r io.Reader) (model.StoredFile, error) {
	data, rule, err := readUpload(util.AttachmentRules, filename, r)
	if err != nil {
		return model.StoredFile{}, err
	}
	return s.put(ctx, AttachmentPrefix, filename, data, rule)
}

// StoreProfilePicture decodes the image, shrinks it to fit 512px and
// re-encodes it, which also drops any embedded metadata.
func (s *UploadService) StoreProfilePicture(ctx context.Context, filename string, r io.Reader) (model.StoredFile, error) {
	data, rule, err := readUpload(util.ProfilePictureRules, filename, r)
	if err != nil {
		return model.StoredFile{}, err
	}

	normalized, err := normalizeImage(data, rule.MIME)
	if err != nil {
		return model.StoredFile{}, err
	}

	return s.put(ctx, ProfilePicturePrefix, filename, normalized, rule)
}

func (s *UploadService) put(ctx context.Context, prefix string, filename string, data []byte, rule util.UploadRule) (model.StoredFile, error) {
	key := prefix + "/" + uuid.NewString() + rule.Ext
	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), rule.MIME); err != nil {
		return model.StoredFile{}, err
	}

	return model.StoredFile{
		Key:         key,
		Name:        util.DisplayName(filename, "attachment"+rule.Ext),
		Size:        int64(len(data)),
		ContentType: rule.MIME,
	}, nil
}

func (s *UploadService) Open(ctx context.Context, key string) (io.ReadCloser, storage.Object, error) {
	if key == "" {
		return nil, storage.Object{}, model.ErrAttachmentNotFound
	}
	body, obj, err := s.blobs.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, storage.Object{}, model.ErrAttachmentNotFound
	}
	return body, obj, err
}

// Remove deletes a blob, logging failures instead of returning them.
func (s *UploadService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		slog.Warn("failed to delete stored file", "key", key, "error", err)
	}
}

func normalizeImage(data []byte, mimeType string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apierror.BadRequest("cannot decode image", err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, apierror.BadRequest("invalid image dimensions", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apierror.BadRequest("cannot decode image", err.Error())
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	maxDim := max(width, height)

	scale := float64(profilePictureMaxEdge) / float64(maxDim)
	if scale > 1 {
		scale = 1
	}

	targetWidth := max(int(math.Round(float64(width)*scale)), 1)
	targetHeight := max(int(math.Round(float64(height)*scale)), 1)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&out, dst)
	default:
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return out.Bytes(), nil
}
