// Package users serves the member-facing endpoints.
package users

import (
	"famportal/services"
	"famportal/storage"
	"famportal/utils"
)

type Handler struct {
	Svc    *services.Services
	Tokens *utils.Tokens
	// Uploader is nil when object storage is not configured.
	Uploader storage.Uploader
}
