// Package crypto implements the AEAD envelope that wraps every
// CommunicationPacket on the wire: ChaCha20-Poly1305 with an authenticated,
// unencrypted ClearHeader as associated data, framed as
// uint32_be length ‖ JSON(EncryptedFrame).
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/satellite-ocs/satellite-ocs/internal/model"
)

// MaxFrameBytes bounds both the serialized logical packet and the final
// serialized frame, per spec §4.6.
const MaxFrameBytes = 1 << 20 // 1 MiB

// NonceSize is the ChaCha20-Poly1305 nonce length.
const NonceSize = chacha20poly1305.NonceSize // 12

var (
	// ErrOversizePacket is returned by Seal when either the serialized
	// packet or the final frame exceeds MaxFrameBytes.
	ErrOversizePacket = errors.New("crypto: packet exceeds 1 MiB limit")
	// ErrKeyIDMismatch is returned by Open before any decryption is
	// attempted, when the frame's key_id does not match the context's.
	ErrKeyIDMismatch = errors.New("crypto: key id mismatch")
	// ErrAuthentication covers AEAD decryption failure and the post-decrypt
	// header-field cross-check failure.
	ErrAuthentication = errors.New("crypto: authentication failed")
	// ErrShortFrame is returned by Deframe/Open when the buffer is too
	// short to contain a valid length-prefixed frame.
	ErrShortFrame = errors.New("crypto: frame too short")
)

// ClearHeader is authenticated but not encrypted. Field order is fixed and
// the struct carries no map-typed fields, so encoding/json produces a
// byte-identical serialization for a given logical value on both seal and
// open — this is what makes re-deriving AAD from the received header safe
// (see DESIGN.md's resolution of the AAD-canonicalization open question).
type ClearHeader struct {
	ProtocolVersion uint16          `json:"protocol_version"`
	PacketType      model.PacketType `json:"packet_type"`
	SequenceNumber  uint32          `json:"sequence_number"`
	Source          model.Endpoint  `json:"source"`
	Destination     model.Endpoint  `json:"destination"`
	KeyID           uint8           `json:"key_id"`
	Nonce           []byte          `json:"nonce"`
}

// EncryptedFrame is the on-wire JSON shape: an authenticated clear header
// plus the AEAD ciphertext (which includes the Poly1305 tag).
type EncryptedFrame struct {
	Header     ClearHeader `json:"header"`
	Ciphertext []byte      `json:"ciphertext"`
}

// Context holds the symmetric key and its identifier used for sealing and
// opening frames. A Context is safe for concurrent use.
type Context struct {
	keyID uint8
	aead  interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
}

// NewContext builds a Context from a key identifier and a 32-byte key.
func NewContext(keyID uint8, key [32]byte) (*Context, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: construct aead: %w", err)
	}
	return &Context{keyID: keyID, aead: aead}, nil
}

// NewContextFromHex parses a 64-character hex key (32 bytes) and builds a
// Context, matching the original implementation's key_hex configuration
// surface.
func NewContextFromHex(keyID uint8, keyHex string) (*Context, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key_hex: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("crypto: key must decode to 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return NewContext(keyID, key)
}

// KeyID reports the key identifier this context seals and expects on open.
func (c *Context) KeyID() uint8 { return c.keyID }

// Seal serializes pkt, encrypts it under ChaCha20-Poly1305 with a fresh
// random nonce and the ClearHeader as AAD, and returns the length-prefixed
// wire frame: uint32_be(len(frame)) ‖ JSON(EncryptedFrame).
func (c *Context) Seal(pkt model.CommunicationPacket) ([]byte, error) {
	plain, err := json.Marshal(pkt)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal packet: %w", err)
	}
	if len(plain) > MaxFrameBytes {
		return nil, ErrOversizePacket
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	header := ClearHeader{
		ProtocolVersion: pkt.ProtocolVersion,
		PacketType:      pkt.PacketType,
		SequenceNumber:  pkt.SequenceNumber,
		Source:          pkt.Source,
		Destination:     pkt.Destination,
		KeyID:           c.keyID,
		Nonce:           nonce,
	}
	aad, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal clear header: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, plain, aad)

	frame := EncryptedFrame{Header: header, Ciphertext: ciphertext}
	frameBytes, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal frame: %w", err)
	}
	if len(frameBytes) > MaxFrameBytes {
		return nil, ErrOversizePacket
	}

	out := make([]byte, 4+len(frameBytes))
	putUint32BE(out[:4], uint32(len(frameBytes)))
	copy(out[4:], frameBytes)
	return out, nil
}

// Open validates the length prefix, deserializes the frame, checks the
// key id, decrypts under the re-derived AAD, and cross-checks the header
// fields against the decrypted packet before returning it.
func (c *Context) Open(buf []byte) (model.CommunicationPacket, error) {
	var zero model.CommunicationPacket
	frameBytes, err := deframeBody(buf)
	if err != nil {
		return zero, err
	}

	var frame EncryptedFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		return zero, fmt.Errorf("crypto: unmarshal frame: %w", err)
	}

	if frame.Header.KeyID != c.keyID {
		return zero, ErrKeyIDMismatch
	}

	aad, err := json.Marshal(frame.Header)
	if err != nil {
		return zero, fmt.Errorf("crypto: marshal clear header: %w", err)
	}

	plain, err := c.aead.Open(nil, frame.Header.Nonce, frame.Ciphertext, aad)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	var pkt model.CommunicationPacket
	if err := json.Unmarshal(plain, &pkt); err != nil {
		return zero, fmt.Errorf("crypto: unmarshal packet: %w", err)
	}

	if pkt.ProtocolVersion != frame.Header.ProtocolVersion ||
		pkt.PacketType != frame.Header.PacketType ||
		pkt.SequenceNumber != frame.Header.SequenceNumber ||
		pkt.Source != frame.Header.Source ||
		pkt.Destination != frame.Header.Destination {
		return zero, fmt.Errorf("%w: header field mismatch", ErrAuthentication)
	}

	return pkt, nil
}

// Frame prepends a big-endian uint32 length prefix to data, refusing
// oversize payloads. Exposed for callers (e.g. the command uplink path)
// that already hold serialized frame bytes and just need the prefix.
func Frame(data []byte) ([]byte, error) {
	if len(data) > MaxFrameBytes {
		return nil, ErrOversizePacket
	}
	out := make([]byte, 4+len(data))
	putUint32BE(out[:4], uint32(len(data)))
	copy(out[4:], data)
	return out, nil
}

// Deframe validates the length prefix against buf and returns the prefix+
// body slice (buf[:4+len]), i.e. exactly what Frame would have produced,
// per the round-trip law in spec §8.
func Deframe(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, ErrShortFrame
	}
	n := getUint32BE(buf[:4])
	if uint64(len(buf)) < 4+uint64(n) {
		return nil, ErrShortFrame
	}
	return buf[:4+n], nil
}

// deframeBody validates the length prefix and returns just the body.
func deframeBody(buf []byte) ([]byte, error) {
	full, err := Deframe(buf)
	if err != nil {
		return nil, err
	}
	return full[4:], nil
}

func putUint32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
