package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/telhawk-systems/keyhawk/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONAPIError writes a single-error JSON:API document.
func writeJSONAPIError(w http.ResponseWriter, status int, code, title, detail string) {
	writeJSONAPIErrors(w, status, []api.ErrorObject{{
		Code:   code,
		Title:  title,
		Detail: detail,
	}})
}

func writeJSONAPIErrors(w http.ResponseWriter, status int, errs []api.ErrorObject) {
	doc := struct {
		Errors []errorObject `json:"errors"`
	}{Errors: make([]errorObject, len(errs))}

	for i, e := range errs {
		doc.Errors[i] = errorObject{
			Status: strconv.Itoa(status),
			Code:   e.Code,
			Title:  e.Title,
			Detail: e.Detail,
			Source: e.Source,
		}
	}

	w.Header().Set("Content-Type", api.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// errorObject is the outgoing error shape; status is always a string.
type errorObject struct {
	Status string           `json:"status"`
	Code   string           `json:"code,omitempty"`
	Title  string           `json:"title,omitempty"`
	Detail string           `json:"detail,omitempty"`
	Source *api.ErrorSource `json:"source,omitempty"`
}

// writeAPIError renders a classified client error with its original status.
func writeAPIError(w http.ResponseWriter, apiErr *api.Error) {
	errs := apiErr.Errors
	if len(errs) == 0 {
		errs = []api.ErrorObject{{
			Code:   apiErr.Code,
			Title:  http.StatusText(apiErr.StatusCode),
			Detail: apiErr.Message,
		}}
	}
	writeJSONAPIErrors(w, apiErr.StatusCode, errs)
}
