package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the status and decoded body of a failed upstream call.
type Error struct {
	Status  int
	Message string
	Payload any
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

// IsConflict reports whether err is an upstream 409.
func IsConflict(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Status == http.StatusConflict
}
