package users

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"famportal/models"
	"famportal/policy"
	"famportal/storage"
	"famportal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUploader runs the same checks as R2 but keeps nothing.
type memUploader struct {
	prefixes []string
}

func (m *memUploader) Upload(_ context.Context, prefix string, r io.Reader) (string, error) {
	if _, _, err := storage.ReadImage(r); err != nil {
		return "", err
	}
	m.prefixes = append(m.prefixes, prefix)
	return fmt.Sprintf("https://cdn.example/%s/%d.png", prefix, len(m.prefixes)), nil
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func uploadRequest(t *testing.T, files ...[]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, data := range files {
		part, err := mw.CreateFormFile("files", fmt.Sprintf("proof-%d.png", i))
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/proof", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	p := &policy.Principal{ID: 42, Role: models.RoleMember, Status: models.UserActive}
	return req.WithContext(context.WithValue(req.Context(), utils.PrincipalKey, p))
}

func TestUploadProof(t *testing.T) {
	up := &memUploader{}
	h := &Handler{Uploader: up}

	w := httptest.NewRecorder()
	h.UploadProof(w, uploadRequest(t, pngHeader, pngHeader))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://cdn.example/proofs/42/2.png")
	assert.Equal(t, []string{"proofs/42", "proofs/42"}, up.prefixes)
}

func TestUploadProofRejects(t *testing.T) {
	h := &Handler{Uploader: &memUploader{}}

	w := httptest.NewRecorder()
	h.UploadProof(w, uploadRequest(t, []byte("just some text")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.UploadProof(w, uploadRequest(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	many := make([][]byte, storage.MaxFiles+1)
	for i := range many {
		many[i] = pngHeader
	}
	w = httptest.NewRecorder()
	h.UploadProof(w, uploadRequest(t, many...))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	(&Handler{}).UploadProof(w, uploadRequest(t, pngHeader))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
