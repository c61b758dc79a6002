package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rentloop/internal/app/commands"
	"rentloop/internal/app/middleware"
	domainbooking "rentloop/internal/domain/booking"
	"rentloop/internal/infra/storage/memory"
)

type stubCommand struct {
	key string
}

func (c stubCommand) Key() string            { return "test.stub" }
func (c stubCommand) IdempotencyKey() string { return c.key }
func (c stubCommand) ResultPrototype() any   { return &stubResult{} }

type stubResult struct {
	Value string `json:"value"`
}

func idempotentBus(handler commands.HandlerFunc[stubCommand, *stubResult]) commands.Bus {
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, "test.stub", handler)
	return middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(), nil))
}

func TestIdempotencyReplaysFirstResult(t *testing.T) {
	calls := 0
	bus := idempotentBus(func(ctx context.Context, cmd stubCommand) (*stubResult, error) {
		calls++
		return &stubResult{Value: fmt.Sprintf("call-%d", calls)}, nil
	})

	for i := 0; i < 2; i++ {
		res, err := bus.Dispatch(context.Background(), stubCommand{key: "k1"})
		if err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
		if got := res.(*stubResult).Value; got != "call-1" {
			t.Fatalf("dispatch %d: value = %q, want call-1", i, got)
		}
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestIdempotencyReplayKeepsErrorIdentity(t *testing.T) {
	calls := 0
	bus := idempotentBus(func(ctx context.Context, cmd stubCommand) (*stubResult, error) {
		calls++
		return nil, fmt.Errorf("%w: card declined", domainbooking.ErrPaymentFailed)
	})

	_, first := bus.Dispatch(context.Background(), stubCommand{key: "k1"})
	if first == nil {
		t.Fatal("first dispatch should fail")
	}
	_, replay := bus.Dispatch(context.Background(), stubCommand{key: "k1"})
	if replay == nil {
		t.Fatal("replayed dispatch should fail")
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if !errors.Is(replay, domainbooking.ErrPaymentFailed) {
		t.Fatalf("replayed error lost its sentinel: %v", replay)
	}
	if replay.Error() != first.Error() {
		t.Fatalf("replayed message = %q, want %q", replay.Error(), first.Error())
	}
}

func TestIdempotencyReplayOfUnknownErrorKeepsMessage(t *testing.T) {
	bus := idempotentBus(func(ctx context.Context, cmd stubCommand) (*stubResult, error) {
		return nil, errors.New("stub: something one-off went wrong")
	})

	_, _ = bus.Dispatch(context.Background(), stubCommand{key: "k1"})
	_, replay := bus.Dispatch(context.Background(), stubCommand{key: "k1"})
	if replay == nil || replay.Error() != "stub: something one-off went wrong" {
		t.Fatalf("replayed error = %v", replay)
	}
}
