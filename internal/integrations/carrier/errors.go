package carrier

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrConfiguration   = errors.New("carrier configuration error")
	ErrResponseContent = errors.New("carrier response content error")
)

type ConfigurationError struct {
	Missing []string
}

func NewConfigurationError(missing ...string) *ConfigurationError {
	return &ConfigurationError{Missing: missing}
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return ErrConfiguration.Error()
	}
	return ErrConfiguration.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type ResponseContentError struct {
	Reason string
	Body   []byte
}

func NewResponseContentError(reason string, body []byte) *ResponseContentError {
	return &ResponseContentError{Reason: reason, Body: body}
}

func (e *ResponseContentError) Error() string {
	return ErrResponseContent.Error() + ": " + e.Reason
}

func (e *ResponseContentError) Unwrap() error {
	return ErrResponseContent
}
