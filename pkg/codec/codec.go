// Package codec turns document text into URL-safe fragments and back.
// The pipeline is utf8 -> zstd -> base64url on encode, reversed on decode,
// and is exact: decode(encode(text)) == text for every input.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrCompressionUnavailable means the compression engine could not be
	// initialized. Fragment encoding and decoding are disabled; the rest of
	// the application keeps working.
	ErrCompressionUnavailable = errors.New("compression engine unavailable")

	// ErrCorruptPayload means a fragment could not be decoded: truncated,
	// tampered with, or simply not one of ours. Callers substitute
	// Placeholder instead of failing.
	ErrCorruptPayload = errors.New("corrupt payload")
)

// Placeholder is shown in place of a document whose fragment failed to decode.
const Placeholder = "⚠️ This link is damaged and the shared text could not be restored."

// window bounds how many raw bytes are fed to the base64 encoder per call,
// so very large documents never turn into one monolithic conversion.
const window = 32 * 1024

// DefaultLevel is the zstd effort level used when callers have no opinion.
const DefaultLevel = 9

// Codec converts between document text and encoded URL fragments.
type Codec struct {
	decoder *zstd.Decoder
}

// New builds a Codec, initializing the shared zstd decoder.
func New() (*Codec, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionUnavailable, err)
	}
	return &Codec{decoder: dec}, nil
}

// Encode compresses text at the given zstd level and returns the URL-safe
// fragment. Empty text encodes to the empty fragment; callers skip the URL
// update entirely in that case.
func (c *Codec) Encode(text string, level int) (string, error) {
	if text == "" {
		return "", nil
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompressionUnavailable, err)
	}
	if _, err := enc.Write([]byte(text)); err != nil {
		enc.Close()
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}

	return encodeFragment(buf.Bytes()), nil
}

// Decode reverses Encode. Every failure mode (bad base64, bad zstd frame,
// invalid UTF-8) is reported as ErrCorruptPayload.
func (c *Codec) Decode(fragment string) (string, error) {
	// Tolerate fragments whose '=' padding was restored in transit.
	fragment = strings.TrimRight(fragment, "=")

	raw, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrCorruptPayload, err)
	}

	plain, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decompress: %v", ErrCorruptPayload, err)
	}

	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrCorruptPayload)
	}
	return string(plain), nil
}

// encodeFragment streams raw bytes through the URL-safe base64 encoder in
// bounded windows. RawURLEncoding already substitutes '+' -> '-', '/' -> '_'
// and emits no '=' padding.
func encodeFragment(raw []byte) string {
	var sb strings.Builder
	sb.Grow(base64.RawURLEncoding.EncodedLen(len(raw)))

	w := base64.NewEncoder(base64.RawURLEncoding, &sb)
	for off := 0; off < len(raw); off += window {
		end := off + window
		if end > len(raw) {
			end = len(raw)
		}
		// strings.Builder never returns a write error.
		w.Write(raw[off:end])
	}
	w.Close()

	return sb.String()
}
