package natsutil

import (
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*natsHeaderCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Fatalf("expected empty value on nil header, got %q", got)
	}
	if keys := c.Keys(); keys != nil {
		t.Fatalf("expected nil keys on nil header, got %v", keys)
	}

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("round trip failed, got %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Fatalf("expected 1 key, got %v", keys)
	}
}
