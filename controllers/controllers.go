// Package controllers holds helpers shared by the auth, users and admins
// handler packages, plus the public endpoints.
package controllers

import (
	"net/http"
	"strconv"

	"famportal/apperr"
	"famportal/services"
	"famportal/utils"

	"github.com/gorilla/mux"
)

// PathID parses the mux variable key as a positive id.
func PathID(r *http.Request, key string) (uint, error) {
	raw := mux.Vars(r)[key]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid " + key)
	}
	return uint(id), nil
}

// QueryID parses an optional id from the query string. Missing means 0.
func QueryID(r *http.Request, key string) (uint, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid " + key)
	}
	return uint(id), nil
}

// PageParams reads ?page= and ?limit=. Bounds are applied by the services.
func PageParams(r *http.Request) services.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return services.Page{Page: page, Limit: limit}
}

// Paged wraps one page of items with the page bounds actually used.
func Paged(p services.Page, items interface{}, total int64) utils.Paged {
	page, limit := p.Bounds()
	return utils.Paged{Items: items, Total: total, Page: page, Limit: limit}
}
