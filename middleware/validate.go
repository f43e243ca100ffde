package middleware

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"famportal/apperr"
	"famportal/utils"
)

// DecodeJSON decodes the body into dst and runs utils.ValidateStruct. On
// failure the error response has already been written and the error is
// returned so the handler can stop.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			utils.WriteJSON(w, http.StatusUnsupportedMediaType, utils.APIResponse{Success: false, Message: "Content-Type must be application/json"})
			return http.ErrNotSupported
		}
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteJSON(w, http.StatusRequestEntityTooLarge, utils.APIResponse{Success: false, Message: "Request body too large"})
			return err
		}
		utils.WriteError(w, r, apperr.Validation("Invalid JSON body"))
		return err
	}
	if err := utils.ValidateStruct(dst); err != nil {
		utils.WriteError(w, r, err)
		return err
	}
	return nil
}
