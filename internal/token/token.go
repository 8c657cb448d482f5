// Package token issues cancellation tokens and decides whether a session's
// cancellation window has closed.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shivanand-hulikatti/training-registration/internal/model"
)

// Length is the number of characters in a cancellation token.
const Length = 32

// ErrInvalidToken is returned for a token that is not well formed.
var ErrInvalidToken = errors.New("invalid cancellation token")

// Generator produces cancellation tokens from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r. A nil r uses crypto/rand.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate returns a new URL-safe token of Length characters drawn from 32
// random bytes. Uniqueness is enforced by storage.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:Length], nil
}

// VerifyFormat checks that tok could be a cancellation token. It does not
// check that any registration holds it.
func VerifyFormat(tok string) error {
	if len(tok) != Length {
		return fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidToken, Length, len(tok))
	}
	return nil
}

// Deadline is the last moment a registration for session may be cancelled:
// midnight UTC of the session date minus the session's deadline hours.
func Deadline(session model.Session) time.Time {
	y, m, d := session.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Add(-time.Duration(session.CancellationDeadlineHours) * time.Hour)
}

// IsCancellationExpired reports whether now is past the session's
// cancellation deadline.
func IsCancellationExpired(session model.Session, now time.Time) bool {
	return now.After(Deadline(session))
}
