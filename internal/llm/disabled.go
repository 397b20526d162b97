package llm

import (
	"context"
	"errors"
)

// ErrDisabled is returned by DisabledCaller for every call.
var ErrDisabled = errors.New("llm calls disabled: no API key configured")

// DisabledCaller stands in when no API key is configured. Generation then
// falls back to static content and judges record null scores, so the service
// stays usable in local runs without credentials.
type DisabledCaller struct{}

func (DisabledCaller) Complete(ctx context.Context, operation string, req Request) (string, error) {
	return "", ErrDisabled
}
