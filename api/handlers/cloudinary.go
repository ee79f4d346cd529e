package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/api"
	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/models"
)

// maxUploadBytes caps chat image attachments
const maxUploadBytes = 10 << 20

// Uploader stores an attachment and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

// CloudinaryUploader stores attachments in a Cloudinary folder
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryUploader configures an uploader from a cloudinary:// URL
func NewCloudinaryUploader(cloudinaryURL, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

// Upload implements Uploader
func (c *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: c.folder,
	})
	if err != nil {
		return "", err
	}
	if resp.Error.Message != "" {
		return "", errors.New(resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// Upload handles chat image attachments
type Upload struct {
	Uploader Uploader
}

// UploadHandler accepts a multipart "image" field and returns its URL
func (u Upload) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if u.Uploader == nil {
		config.ErrorStatus("uploads are not configured", http.StatusServiceUnavailable, w, errors.New("no uploader"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		config.ErrorStatus("failed to parse upload", http.StatusBadRequest, w, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		config.ErrorStatus("image field is required", http.StatusBadRequest, w, err)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		config.ErrorStatus("only images can be attached", http.StatusUnsupportedMediaType, w, fmt.Errorf("content type %q", ct))
		return
	}

	url, err := u.Uploader.Upload(r.Context(), file, header.Filename)
	if err != nil {
		config.ErrorStatus("failed to upload image", http.StatusBadGateway, w, err)
		return
	}
	zap.S().Infow("chat attachment uploaded", "filename", header.Filename, "size", header.Size)

	api.WriteJSON(w, http.StatusOK, models.UploadResponse{ImageURL: url})
}
