// Package generation holds what the generation backends share.
package generation

import (
	"fmt"
	"strings"

	"qnagen-be/pkg/qgen"
)

// StatusError is a non-2xx reply of the generation service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("generation service returned status %d", e.Code)
	}
	return fmt.Sprintf("generation service returned status %d: %s", e.Code, body)
}

// Backend answers the workflow calls and renders exports.
type Backend interface {
	qgen.Service
	qgen.Exporter
}
