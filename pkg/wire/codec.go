package wire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
)

// Version is the message format version. Peers refuse messages of any
// other version.
const Version = 1

var (
	// ErrVersion is returned for messages written by an incompatible peer.
	ErrVersion = errors.New("unsupported message version")

	// ErrChecksum is returned when a message body does not match its hash.
	ErrChecksum = errors.New("message checksum mismatch")

	// ErrMalformed is returned for truncated or unrecognized envelopes.
	ErrMalformed = errors.New("malformed message")
)

func versionError(v int) error {
	return fmt.Errorf("%w: %d (want %d)", ErrVersion, v, Version)
}

// Kind identifies the message type inside an envelope.
type Kind byte

const (
	KindWork   Kind = 1
	KindResult Kind = 2
)

const (
	flagSnappy byte = 1 << iota
)

// envelope: 'N' 'R' version kind flags checksum(8, big endian) body
const envelopeSize = 2 + 1 + 1 + 1 + 8

// Codec encodes messages, optionally compressing the body.
type Codec struct {
	Compress bool
}

func (c Codec) seal(kind Kind, body []byte) []byte {
	flags := byte(0)
	if c.Compress {
		body = snappy.Encode(nil, body)
		flags |= flagSnappy
	}
	out := make([]byte, envelopeSize+len(body))
	out[0], out[1] = 'N', 'R'
	out[2] = Version
	out[3] = byte(kind)
	out[4] = flags
	binary.BigEndian.PutUint64(out[5:], xxhash.Sum64(body))
	copy(out[envelopeSize:], body)
	return out
}

// open validates an envelope and returns its kind and decompressed body.
func open(msg []byte) (Kind, []byte, error) {
	if len(msg) < envelopeSize || msg[0] != 'N' || msg[1] != 'R' {
		return 0, nil, ErrMalformed
	}
	if msg[2] != Version {
		return 0, nil, versionError(int(msg[2]))
	}
	kind, flags := Kind(msg[3]), msg[4]
	body := msg[envelopeSize:]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(msg[5:]) {
		return 0, nil, ErrChecksum
	}
	if flags&flagSnappy != 0 {
		var err error
		if body, err = snappy.Decode(nil, body); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return kind, body, nil
}

// EncodeWork serializes a WorkUnit.
func (c Codec) EncodeWork(u *WorkUnit) ([]byte, error) {
	body, err := u.MarshalMsg(nil)
	if err != nil {
		return nil, err
	}
	return c.seal(KindWork, body), nil
}

// EncodeResult serializes a ResultUnit.
func (c Codec) EncodeResult(r *ResultUnit) ([]byte, error) {
	body, err := r.MarshalMsg(nil)
	if err != nil {
		return nil, err
	}
	return c.seal(KindResult, body), nil
}

// DecodeWork parses a message that must hold a WorkUnit.
func DecodeWork(msg []byte) (*WorkUnit, error) {
	kind, body, err := open(msg)
	if err != nil {
		return nil, err
	}
	if kind != KindWork {
		return nil, fmt.Errorf("%w: expected work unit, got kind %d", ErrMalformed, kind)
	}
	u := &WorkUnit{}
	if _, err := u.UnmarshalMsg(body); err != nil {
		return nil, err
	}
	return u, nil
}

// DecodeResult parses a message that must hold a ResultUnit.
func DecodeResult(msg []byte) (*ResultUnit, error) {
	kind, body, err := open(msg)
	if err != nil {
		return nil, err
	}
	if kind != KindResult {
		return nil, fmt.Errorf("%w: expected result unit, got kind %d", ErrMalformed, kind)
	}
	r := &ResultUnit{}
	if _, err := r.UnmarshalMsg(body); err != nil {
		return nil, err
	}
	return r, nil
}
