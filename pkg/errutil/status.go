package errutil

import "net/http"

type CoreStatus string

const (
	StatusNotFound        CoreStatus = "NOT_FOUND"
	StatusInvalidState    CoreStatus = "INVALID_STATE"
	StatusInvalidAssignee CoreStatus = "INVALID_ASSIGNEE"
	StatusForbidden       CoreStatus = "FORBIDDEN"
	StatusBadRequest      CoreStatus = "BAD_REQUEST"
	StatusInternal        CoreStatus = "INTERNAL"
)

// HTTPCode converts the CoreStatus to its closest HTTP status code. The
// transport layer owns the final mapping; this is the default it starts from.
func (s CoreStatus) HTTPCode() int {
	switch s {
	case StatusNotFound:
		return http.StatusNotFound
	case StatusInvalidState, StatusInvalidAssignee, StatusBadRequest:
		return http.StatusBadRequest
	case StatusForbidden:
		return http.StatusForbidden
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
