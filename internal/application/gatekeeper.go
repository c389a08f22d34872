package application

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// Header names read from webhook deliveries. Gitea sends the GitHub-compatible
// event header alongside its own.
const (
	HeaderAuthorization = "Authorization"
	HeaderEvent         = "X-GitHub-Event"
)

// Authorize checks the delivery's Authorization header against the shared
// secret. A missing header and a mismatch both fail with model.ErrUnauthorized;
// a header that is not valid UTF-8 fails with model.ErrHeaderDecoding.
func Authorize(header http.Header, secret string) error {
	values := header.Values(HeaderAuthorization)
	if len(values) == 0 {
		return fmt.Errorf("missing %s header: %w", HeaderAuthorization, model.ErrUnauthorized)
	}
	got := values[0]
	if !utf8.ValidString(got) {
		return fmt.Errorf("decode %s header: %w", HeaderAuthorization, model.ErrHeaderDecoding)
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return fmt.Errorf("%s header mismatch: %w", HeaderAuthorization, model.ErrUnauthorized)
	}
	return nil
}

// ClassifyEvent maps the X-GitHub-Event header to an EventKind. A missing header
// fails with model.ErrNotSupported; a header that is not valid UTF-8 fails with
// model.ErrHeaderDecoding.
func ClassifyEvent(header http.Header) (model.EventKind, error) {
	values := header.Values(HeaderEvent)
	if len(values) == 0 {
		return model.EventOther, fmt.Errorf("missing %s header: %w", HeaderEvent, model.ErrNotSupported)
	}
	if !utf8.ValidString(values[0]) {
		return model.EventOther, fmt.Errorf("decode %s header: %w", HeaderEvent, model.ErrHeaderDecoding)
	}
	return model.ParseEventKind(values[0]), nil
}
