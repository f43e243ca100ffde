package storage

import "famportal/apperr"

var (
	ErrEmptyFile       = apperr.Validation("file is empty")
	ErrTooLarge        = apperr.Validation("file exceeds 10 MiB")
	ErrUnsupportedType = apperr.Validation("only jpg, png, webp and heic images are accepted")
)
