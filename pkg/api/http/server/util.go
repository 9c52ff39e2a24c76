package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	ie "github.com/voidshard/taskqueue/pkg/errors"
)

const maxLimit = 100

var (
	errmap map[int][]error = map[int][]error{
		http.StatusBadRequest: []error{
			ie.ErrInvalidArg,
			ie.ErrUnknownTag,
		},
		http.StatusNotFound: []error{
			ie.ErrNotFound,
		},
		http.StatusNotImplemented: []error{
			ie.ErrNotSupported,
		},
	}
)

// query are the options for listing tasks
type query struct {
	Limit int
	Tag   string
}

func (q *query) sanitize() {
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = maxLimit
	}
}

// mapError returns the http status code for a given error, or
// http.StatusInternalServerError if the error is not recognised.
func mapError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for code, errs := range errmap {
		for _, e := range errs {
			if errors.Is(err, e) {
				return code
			}
		}
	}
	return http.StatusInternalServerError
}

func unmarshalQuery(w http.ResponseWriter, r *http.Request, out *query) error {
	q := r.URL.Query()

	if q.Has("limit") {
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return fmt.Errorf("bad limit: %v", err)
		}
		out.Limit = limit
	}
	if q.Has("tag") {
		out.Tag = q.Get("tag")
	}

	out.sanitize()
	return nil
}
