// Package codec turns stored message bodies into render-safe text.
//
// New messages are stored as plain text. Older records may carry a
// passphrase-encrypted payload in the OpenSSL "Salted__" format; those are
// recovered when possible and otherwise returned verbatim and flagged.
package codec

import (
	"log/slog"
	"strings"

	"github.com/heartmarshall/inquiry-backend/internal/domain"
)

// Message is a decoded body tagged with how it was interpreted.
type Message = domain.DecodedBody

// Codec decodes stored bodies. The zero value treats every legacy payload as opaque.
type Codec struct {
	passphrase []byte
	log        *slog.Logger
}

// New creates a Codec. An empty passphrase disables legacy recovery.
func New(log *slog.Logger, passphrase string) *Codec {
	if log == nil {
		log = slog.Default()
	}
	return &Codec{
		passphrase: []byte(passphrase),
		log:        log.With("component", "codec"),
	}
}

// Encode returns the stored form of text. New writes are never obfuscated.
func (c *Codec) Encode(text string) string {
	return text
}

// Decode never panics. Any legacy payload that cannot be recovered is
// returned unchanged with EncodingLegacyOpaque.
func (c *Codec) Decode(raw string) (msg Message) {
	if !LooksLegacy(raw) {
		return Message{Text: strings.ToValidUTF8(raw, "�"), Encoding: domain.EncodingPlain}
	}

	opaque := Message{Text: raw, Encoding: domain.EncodingLegacyOpaque}
	defer func() {
		if r := recover(); r != nil {
			c.logger().Warn("legacy decode panicked", slog.Any("panic", r))
			msg = opaque
		}
	}()

	if c == nil || len(c.passphrase) == 0 {
		return opaque
	}

	text, err := decryptLegacy(raw, c.passphrase)
	if err != nil {
		c.logger().Debug("legacy body left opaque", slog.String("error", err.Error()))
		return opaque
	}
	return Message{Text: text, Encoding: domain.EncodingLegacyRecovered}
}

// DecodeLog fills Decoded on every message of log in place.
func (c *Codec) DecodeLog(log []domain.ChatMessage) {
	for i := range log {
		m := c.Decode(log[i].Body)
		log[i].Decoded = &m
	}
}

func (c *Codec) logger() *slog.Logger {
	if c == nil || c.log == nil {
		return slog.Default()
	}
	return c.log
}
