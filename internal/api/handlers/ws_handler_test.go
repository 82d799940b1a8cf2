package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func runForward(ctx context.Context, ch <-chan *redis.Message, write func([]byte) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		forwardStatus(ctx, ch, write)
	}()
	return done
}

func waitReturn(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not return")
	}
}

func TestForwardStatus_ReturnsOnDisconnect(t *testing.T) {
	// channel that will never deliver: a terminal assessment publishes nothing
	ch := make(chan *redis.Message)
	ctx, cancel := context.WithCancel(context.Background())

	done := runForward(ctx, ch, func([]byte) error { return nil })

	cancel() // client went away
	waitReturn(t, done)
}

func TestForwardStatus_ReturnsOnSubscriptionClose(t *testing.T) {
	ch := make(chan *redis.Message)
	done := runForward(context.Background(), ch, func([]byte) error { return nil })

	close(ch)
	waitReturn(t, done)
}

func TestForwardStatus_WritesPayloads(t *testing.T) {
	ch := make(chan *redis.Message, 2)
	ch <- &redis.Message{Payload: "one"}
	ch <- &redis.Message{Payload: "two"}
	close(ch)

	var got []string
	done := runForward(context.Background(), ch, func(b []byte) error {
		got = append(got, string(b))
		return nil
	})

	waitReturn(t, done)
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("unexpected payloads: %v", got)
	}
}

func TestForwardStatus_ReturnsOnWriteError(t *testing.T) {
	ch := make(chan *redis.Message, 1)
	ch <- &redis.Message{Payload: "one"}

	done := runForward(context.Background(), ch, func([]byte) error {
		return errors.New("peer closed")
	})
	waitReturn(t, done)
}
