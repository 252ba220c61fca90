package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrEmptyTag     = errors.New("envelope has no tag")
)

// Envelope frames every message on a peer channel.
type Envelope struct {
	V       int             `json:"v"`
	Tag     Tag             `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Encode(tag Tag, payload any) ([]byte, error) {
	if tag == "" {
		return nil, ErrEmptyTag
	}

	env := Envelope{V: Version, Tag: tag}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s payload: %w", tag, err)
		}
		env.Payload = pb
	}

	return json.Marshal(env)
}

// MustEncode is Encode for payloads that cannot fail to marshal.
func MustEncode(tag Tag, payload any) []byte {
	b, err := Encode(tag, payload)
	if err != nil {
		panic(err)
	}
	return b
}

func Decode(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyMessage
	}

	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshalling envelope: %w", err)
	}
	if env.Tag == "" {
		return Envelope{}, ErrEmptyTag
	}

	return env, nil
}

func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("empty payload for tag %q", env.Tag)
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("unmarshalling %s payload: %w", env.Tag, err)
	}
	return out, nil
}
