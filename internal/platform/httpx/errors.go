package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping binds a sentinel error to a problem response.
type ErrorMapping struct {
	Target error
	Status int
	Title  string
}

// RespondError writes the first mapping matching err using RFC7807. Unmapped
// errors become an opaque 500.
func RespondError(w http.ResponseWriter, err error, mappings ...ErrorMapping) {
	for _, m := range mappings {
		if m.Target != nil && errors.Is(err, m.Target) {
			Problem(w, m.Status, m.Title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
