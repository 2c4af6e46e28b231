package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/readers-guild/clubhouse-api/internal/app/paging"
	"github.com/readers-guild/clubhouse-api/internal/domain"
)

// pageRequestFromQuery reads ?page=&size=. Absent values default to page 0 and
// paging.DefaultSize; out-of-range sizes are passed through for paging to clamp.
func pageRequestFromQuery(r *http.Request) (domain.PageRequest, error) {
	page := 0
	size := paging.DefaultSize
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		return domain.PageRequest{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", q, &size); err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{Number: page, Size: size}, nil
}

func stringQuery(r *http.Request, name string) (string, error) {
	var v string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", err
	}
	return v, nil
}

// pathParam binds a required simple-style path segment.
func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("path parameter %q is empty", name)
	}
	return v, nil
}

func writeParamError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", err.Error(), nil)
}
