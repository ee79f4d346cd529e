package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/clinic-chat-api/api/handlers"
	"github.com/linesmerrill/clinic-chat-api/models"
)

type fakeUploader struct {
	got  []byte
	name string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got, _ = io.ReadAll(file)
	f.name = filename
	return "https://res.cloudinary.com/demo/image/upload/" + filename, nil
}

func multipartImage(t *testing.T, field, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="rash.png"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_StoresImage(t *testing.T) {
	up := &fakeUploader{}
	u := handlers.Upload{Uploader: up}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UploadHandler).ServeHTTP(rr, multipartImage(t, "image", "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/rash.png", resp.ImageURL)
	assert.Equal(t, []byte("png-bytes"), up.got)
	assert.Equal(t, "rash.png", up.name)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		uploader handlers.Uploader
		field    string
		ct       string
		want     int
	}{
		{name: "not configured", uploader: nil, field: "image", ct: "image/png", want: http.StatusServiceUnavailable},
		{name: "wrong field", uploader: &fakeUploader{}, field: "file", ct: "image/png", want: http.StatusBadRequest},
		{name: "not an image", uploader: &fakeUploader{}, field: "image", ct: "application/pdf", want: http.StatusUnsupportedMediaType},
		{name: "upstream failure", uploader: &fakeUploader{err: errors.New("quota")}, field: "image", ct: "image/jpeg", want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := handlers.Upload{Uploader: tt.uploader}
			rr := httptest.NewRecorder()
			http.HandlerFunc(u.UploadHandler).ServeHTTP(rr, multipartImage(t, tt.field, tt.ct, []byte("data")))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
