package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted in the ?codec= query parameter.
const (
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// Envelope is the outer frame of every JSON message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Codec turns frames into typed messages and back.
type Codec interface {
	Name() string
	// Binary reports whether frames travel as websocket binary messages.
	Binary() bool
	Encode(msgType string, payload any) ([]byte, error)
	Decode(data []byte) (Inbound, error)
}

// CodecByName returns the codec for a query value; empty selects JSON.
func CodecByName(name string) (Codec, bool) {
	switch name {
	case "", CodecJSON:
		return JSON, true
	case CodecMsgPack:
		return MsgPack, true
	}
	return nil, false
}

var (
	// JSON is the default text codec.
	JSON Codec = jsonCodec{}
	// MsgPack is the binary codec. Field names follow the json tags.
	MsgPack Codec = msgpackCodec{}
)

type unmarshalFunc func(data []byte, v any) error

// decoders maps each inbound type to its concrete decoder.
var decoders = map[string]func(unmarshalFunc, []byte) (Inbound, error){
	TypeCreateRoom:         decodeAs[CreateRoom],
	TypeJoinRoom:           decodeAs[JoinRoom],
	TypeGetPublicRooms:     decodeAs[GetPublicRooms],
	TypeReady:              decodeAs[Ready],
	TypeStartGameRequest:   decodeAs[StartGameRequest],
	TypeGameUpdate:         decodeAs[GameUpdate],
	TypePlayerAttack:       decodeAs[PlayerAttack],
	TypePlayerDamage:       decodeAs[PlayerDamage],
	TypePlayerKilled:       decodeAs[PlayerKilled],
	TypePlayerRespawned:    decodeAs[PlayerRespawned],
	TypeWeaponPickedUp:     decodeAs[WeaponPickedUp],
	TypeWeaponSpawned:      decodeAs[WeaponSpawned],
	TypeWeaponEquipped:     decodeAs[WeaponEquipped],
	TypeAddBot:             decodeAs[AddBot],
	TypeChangeMap:          decodeAs[ChangeMap],
	TypeClosePlayerSlot:    decodeAs[ClosePlayerSlot],
	TypeIncreaseMaxPlayers: decodeAs[IncreaseMaxPlayers],
	TypeLeaveRoom:          decodeAs[LeaveRoom],
}

func decodeAs[T Inbound](unmarshal unmarshalFunc, raw []byte) (Inbound, error) {
	var out T
	if len(raw) > 0 {
		if err := unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, out.Type(), err)
		}
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", out.Type(), err)
	}
	return out, nil
}

func decodeInbound(msgType string, raw []byte, unmarshal unmarshalFunc) (Inbound, error) {
	dec, ok := decoders[msgType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msgType)
	}
	return dec(unmarshal, raw)
}

// IsClientError reports whether err came from a malformed or unknown message.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrUnknownType)
}

// =============================================================================
// JSON
// =============================================================================

type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("encode: empty message type")
	}
	env := Envelope{Type: msgType}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		env.Payload = pb
	}
	return json.Marshal(env)
}

func (jsonCodec) Decode(data []byte) (Inbound, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidPayload)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if string(env.Payload) == "null" {
		env.Payload = nil
	}
	return decodeInbound(env.Type, env.Payload, json.Unmarshal)
}

// =============================================================================
// MSGPACK
// =============================================================================

type msgpackEnvelope struct {
	Type    string             `json:"type"`
	Payload msgpack.RawMessage `json:"payload,omitempty"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return CodecMsgPack }
func (msgpackCodec) Binary() bool { return true }

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func msgpackUnmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (msgpackCodec) Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("encode: empty message type")
	}
	env := msgpackEnvelope{Type: msgType}
	if payload != nil {
		pb, err := msgpackMarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		env.Payload = pb
	}
	return msgpackMarshal(&env)
}

func (msgpackCodec) Decode(data []byte) (Inbound, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidPayload)
	}
	var env msgpackEnvelope
	if err := msgpackUnmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	// A nil payload encodes as a single nil byte.
	if len(env.Payload) == 1 && env.Payload[0] == 0xc0 {
		env.Payload = nil
	}
	return decodeInbound(env.Type, env.Payload, msgpackUnmarshal)
}
