//go:build integration

package natsutil

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func natsURL() string {
	if v := os.Getenv("NATS_URL"); v != "" {
		return v
	}
	return nats.DefaultURL
}

func TestPublisher_Delivers(t *testing.T) {
	nc, err := nats.Connect(natsURL())
	if err != nil {
		t.Fatalf("nats connect: %v", err)
	}
	t.Cleanup(nc.Close)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("integ.ingest.completed", ch)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	p := NewPublisher(nc, "integ.ingest.completed")
	if err := p.Publish(context.Background(), testEvent{ID: "e1", Chunks: 2}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-ch:
		var got testEvent
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != "e1" || got.Chunks != 2 {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
