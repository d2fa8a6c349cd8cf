package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/ynakagi/homerelay/internal/api/response"
	"github.com/ynakagi/homerelay/internal/line"
)

// SignatureMiddleware verifies the X-Line-Signature header against the raw
// request body. The body is re-buffered so handlers downstream can read it
// again.
type SignatureMiddleware struct {
	channelSecret string
}

// NewSignatureMiddleware creates the webhook signature check. An empty
// channel secret disables verification, which is only acceptable for local
// development.
func NewSignatureMiddleware(channelSecret string) *SignatureMiddleware {
	if channelSecret == "" {
		log.Warn().Msg("channel secret is empty, webhook signature verification disabled")
	}
	return &SignatureMiddleware{channelSecret: channelSecret}
}

// Verify rejects requests whose signature does not match
func (m *SignatureMiddleware) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.channelSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			response.BadRequest(w, "failed to read request body")
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		signature := r.Header.Get("X-Line-Signature")
		if !line.ValidateSignature(m.channelSecret, body, signature) {
			log.Warn().Str("remote_addr", r.RemoteAddr).Msg("rejected webhook with bad signature")
			response.Unauthorized(w, "invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}
