package users

import (
	"fmt"
	"net/http"

	"famportal/apperr"
	"famportal/storage"
	"famportal/utils"
)

// POST /v1/uploads/proof takes up to storage.MaxFiles images in the
// multipart field "files" and returns their URLs in upload order.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if h.Uploader == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.APIResponse{Success: false, Message: "File storage is not configured"})
		return
	}
	uid, _ := utils.GetUserID(r)
	if err := r.ParseMultipartForm(2 << 20); err != nil {
		utils.WriteError(w, r, apperr.Validation("invalid form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	switch {
	case len(files) == 0:
		utils.WriteError(w, r, apperr.Validation("files is required"))
		return
	case len(files) > storage.MaxFiles:
		utils.WriteError(w, r, apperr.Validation(fmt.Sprintf("at most %d files per upload", storage.MaxFiles)))
		return
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		if fh.Size > storage.MaxFileBytes {
			utils.WriteError(w, r, storage.ErrTooLarge)
			return
		}
		f, err := fh.Open()
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		url, err := h.Uploader.Upload(r.Context(), fmt.Sprintf("proofs/%d", uid), f)
		f.Close()
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		urls = append(urls, url)
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Uploaded",
		Data:    map[string]interface{}{"urls": urls},
	})
}
