package semantic

import (
	"testing"
)

func TestPointID_Deterministic(t *testing.T) {
	a := PointID("msg-123")
	b := PointID("msg-123")
	if a != b {
		t.Fatalf("same message id produced different point ids: %s vs %s", a, b)
	}
}

func TestPointID_DistinctPerMessage(t *testing.T) {
	if PointID("msg-1") == PointID("msg-2") {
		t.Fatal("different message ids collided")
	}
}

func TestPointID_IsUUID(t *testing.T) {
	id := PointID("anything")
	if len(id) != 36 {
		t.Fatalf("expected canonical UUID string, got %q", id)
	}
}

func TestRecordPayload(t *testing.T) {
	p := recordPayload(VectorRecord{
		MessageID: "7",
		UserName:  "Alice",
		Text:      "Going to Santorini in June",
	})
	if p["message_id"].GetStringValue() != "7" {
		t.Fatalf("message_id: %v", p["message_id"])
	}
	if p["user_name"].GetStringValue() != "Alice" {
		t.Fatalf("user_name: %v", p["user_name"])
	}
	if p["text"].GetStringValue() != "Going to Santorini in June" {
		t.Fatalf("text: %v", p["text"])
	}
}
