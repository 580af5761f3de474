package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"arena-brawl/internal/game"
)

func TestJSONDecodeRoutesByType(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, msg Inbound)
	}{
		{
			name:  "damage claim",
			frame: `{"type":"playerDamage","payload":{"targetId":"p2","damage":25,"effects":{"knockbackStrength":3,"knockbackDuration":0.2,"stunDuration":0.2}}}`,
			check: func(t *testing.T, msg Inbound) {
				d, ok := msg.(PlayerDamage)
				if !ok {
					t.Fatalf("got %T", msg)
				}
				if d.TargetID != "p2" || d.Damage != 25 || d.Effects == nil || d.Effects.StunDuration != 0.2 {
					t.Errorf("unexpected %+v", d)
				}
			},
		},
		{
			name:  "empty payload",
			frame: `{"type":"ready"}`,
			check: func(t *testing.T, msg Inbound) {
				if _, ok := msg.(Ready); !ok {
					t.Fatalf("got %T", msg)
				}
			},
		},
		{
			name:  "null payload",
			frame: `{"type":"getPublicRooms","payload":null}`,
			check: func(t *testing.T, msg Inbound) {
				if _, ok := msg.(GetPublicRooms); !ok {
					t.Fatalf("got %T", msg)
				}
			},
		},
		{
			name:  "flattened weapon spawn",
			frame: `{"type":"weaponSpawned","payload":{"uuid":"w-1","weaponName":"Sword.fbx","x":3,"y":1,"z":-4}}`,
			check: func(t *testing.T, msg Inbound) {
				w, ok := msg.(WeaponSpawned)
				if !ok {
					t.Fatalf("got %T", msg)
				}
				if w.ID != "w-1" || w.X != 3 || w.Z != -4 {
					t.Errorf("unexpected %+v", w)
				}
			},
		},
		{
			name:  "client health is carried but optional",
			frame: `{"type":"gameUpdate","payload":{"position":{"x":1,"y":0,"z":2},"rotation":1.5,"animation":"Run","health":100}}`,
			check: func(t *testing.T, msg Inbound) {
				u, ok := msg.(GameUpdate)
				if !ok {
					t.Fatalf("got %T", msg)
				}
				if u.Health == nil || *u.Health != 100 || u.EquippedWeapon != nil {
					t.Errorf("unexpected %+v", u)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := JSON.Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.check(t, msg)
		})
	}
}

func TestJSONDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"empty frame", ``, ErrInvalidPayload},
		{"not json", `hello`, ErrInvalidPayload},
		{"unknown type", `{"type":"teleport","payload":{}}`, ErrUnknownType},
		{"wrong field type", `{"type":"playerDamage","payload":{"targetId":"x","damage":"lots"}}`, ErrInvalidPayload},
		{"negative damage", `{"type":"playerDamage","payload":{"targetId":"x","damage":-5}}`, ErrInvalidPayload},
		{"missing target", `{"type":"playerDamage","payload":{"damage":5}}`, ErrInvalidPayload},
		{"huge coordinate", `{"type":"gameUpdate","payload":{"position":{"x":1e9,"y":0,"z":0}}}`, ErrInvalidPayload},
		{"long nickname", `{"type":"joinRoom","payload":{"roomId":"ABCDEF","nickname":"` + strings.Repeat("n", 40) + `"}}`, ErrInvalidPayload},
		{"blank nickname", `{"type":"createRoom","payload":{"nickname":"   "}}`, ErrInvalidPayload},
		{"unknown map", `{"type":"createRoom","payload":{"nickname":"a","map":"moon"}}`, ErrInvalidPayload},
		{"unknown difficulty", `{"type":"addBot","payload":{"difficulty":"nightmare"}}`, ErrInvalidPayload},
		{"negative slot", `{"type":"closePlayerSlot","payload":{"index":-1}}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSON.Decode([]byte(tt.frame))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !IsClientError(err) {
				t.Error("should be classified as a client error")
			}
		})
	}
}

func TestJSONEncodeEnvelope(t *testing.T) {
	data, err := JSON.Encode(TypeHPUpdate, game.HealthUpdate{PlayerID: "p1", Health: 40, AttackerID: "bot-1"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != TypeHPUpdate {
		t.Errorf("type = %q", env.Type)
	}
	var hu map[string]any
	if err := json.Unmarshal(env.Payload, &hu); err != nil {
		t.Fatal(err)
	}
	if hu["playerId"] != "p1" || hu["health"] != float64(40) {
		t.Errorf("payload = %v", hu)
	}
	if _, ok := hu["weaponEffects"]; ok {
		t.Error("absent effects should be omitted")
	}

	if _, err := JSON.Encode("", nil); err == nil {
		t.Error("empty type should fail")
	}
}

func TestMsgPackUsesJSONFieldNames(t *testing.T) {
	data, err := MsgPack.Encode(TypeUpdateTimer, UpdateTimer{Seconds: 42})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var env map[string]any
	if err := msgpack.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env["type"] != TypeUpdateTimer {
		t.Fatalf("type = %v", env["type"])
	}

	var payload map[string]any
	raw, err := msgpack.Marshal(env["payload"])
	if err != nil {
		t.Fatal(err)
	}
	if err := msgpack.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	if _, ok := payload["seconds"]; !ok {
		t.Errorf("expected json field name, got %v", payload)
	}
}

func TestMsgPackDecodeInbound(t *testing.T) {
	frame, err := msgpackMarshal(&msgpackEnvelope{
		Type:    TypeWeaponPickedUp,
		Payload: mustMsgpack(t, map[string]any{"uuid": "w-9"}),
	})
	if err != nil {
		t.Fatal(err)
	}

	msg, err := MsgPack.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p, ok := msg.(WeaponPickedUp); !ok || p.UUID != "w-9" {
		t.Errorf("got %#v", msg)
	}

	empty, err := msgpackMarshal(&msgpackEnvelope{Type: TypeLeaveRoom})
	if err != nil {
		t.Fatal(err)
	}
	if msg, err := MsgPack.Decode(empty); err != nil {
		t.Errorf("empty payload: %v", err)
	} else if _, ok := msg.(LeaveRoom); !ok {
		t.Errorf("got %T", msg)
	}

	if _, err := MsgPack.Decode([]byte{0xff, 0x00}); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("garbage frame: %v", err)
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		binary bool
	}{
		{"", true, false},
		{"json", true, false},
		{"msgpack", true, true},
		{"protobuf", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := CodecByName(tt.name)
			if ok != tt.ok {
				t.Fatalf("ok = %v", ok)
			}
			if ok && c.Binary() != tt.binary {
				t.Errorf("binary = %v", c.Binary())
			}
		})
	}
}

func mustMsgpack(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpackMarshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
