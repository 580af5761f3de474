package game

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
)

func TestEventLogWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	el := NewEventLog()
	el.StartWriter(&buf)

	el.EmitSimple(EventTypeDamage, "ABC234", 3, "p1", DamagePayload{AttackerID: "p1", VictimID: "p2", Damage: 15, VictimHP: 85})
	el.EmitSimple(EventTypeKill, "ABC234", 4, "p1", KillPayload{KillerID: "p1", VictimID: "p2", KillerKills: 1, VictimDeaths: 1})
	el.Stop()

	var lines []map[string]interface{}
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["type"] != "damage" || lines[1]["type"] != "kill" {
		t.Errorf("unexpected types: %v, %v", lines[0]["type"], lines[1]["type"])
	}
	if lines[1]["sequence"].(float64) <= lines[0]["sequence"].(float64) {
		t.Error("sequence must be increasing")
	}
}

func TestEventLogPerPlayerRateLimit(t *testing.T) {
	el := NewEventLog()
	el.StartWriter(nil)
	defer el.Stop()

	accepted := 0
	for i := 0; i < 200; i++ {
		if el.EmitSimple(EventTypeDamage, "R", 0, "spammer", nil) {
			accepted++
		}
	}
	if accepted >= 200 {
		t.Error("per-player limiter should drop a burst of 200")
	}
	if el.DroppedCount() == 0 {
		t.Error("dropped counter should be incremented")
	}
}

func TestNilEventLogIsNoop(t *testing.T) {
	var el *EventLog
	if el.EmitSimple(EventTypeKill, "R", 0, "", nil) {
		t.Error("nil log should not accept events")
	}
	el.Stop()
}

func TestEmitBeforeStartIsDropped(t *testing.T) {
	el := NewEventLog()
	if el.Emit(NewEvent(EventTypeMatchStart, "R", 0, "", nil)) {
		t.Error("log that was never started should refuse events")
	}
}
