package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewRedisNotifier(client, "")
	sent := Event{Kind: KindTransfer, From: "a", To: "b", Amount: 20_000, At: time.UnixMilli(1_000).UTC()}
	if err := n.Send(ctx, sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Kind != sent.Kind || got.From != "a" || got.To != "b" || got.Amount != 20_000 {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Send(context.Context, Event) error {
	f.calls++
	return errors.New("down")
}

type countingNotifier struct{ calls int }

func (c *countingNotifier) Send(context.Context, Event) error {
	c.calls++
	return nil
}

func TestMultiDeliversToAll(t *testing.T) {
	bad := &failingNotifier{}
	good := &countingNotifier{}
	m := Multi{bad, nil, good}

	if err := m.Send(context.Background(), Event{Kind: KindMint}); err == nil {
		t.Fatal("expected error from failing notifier")
	}
	if bad.calls != 1 || good.calls != 1 {
		t.Fatalf("expected both notifiers called, got %d and %d", bad.calls, good.calls)
	}
}
