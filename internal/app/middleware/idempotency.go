package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"rentloop/internal/app/commands"
	domainavailability "rentloop/internal/domain/availability"
	domainbooking "rentloop/internal/domain/booking"
	domainlistings "rentloop/internal/domain/listings"
	domainpayouts "rentloop/internal/domain/payouts"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  string
	OccurredAt time.Time
}

// replayableErrors maps persisted error kinds back to their sentinels, so a
// replayed failure keeps its errors.Is identity and the HTTP layer maps it to
// the same status as the first attempt. Ordered: first match wins, most
// specific sentinels before the ones they may wrap.
var replayableErrors = []struct {
	kind     string
	sentinel error
}{
	{"booking_not_found", domainbooking.ErrBookingNotFound},
	{"listing_not_found", domainlistings.ErrListingNotFound},
	{"payout_not_found", domainpayouts.ErrPayoutNotFound},
	{"forbidden", domainbooking.ErrForbidden},
	{"unavailable", domainbooking.ErrUnavailable},
	{"range_conflict", domainavailability.ErrRangeConflict},
	{"invalid_transition", domainbooking.ErrInvalidTransition},
	{"payment_failed", domainbooking.ErrPaymentFailed},
	{"invalid_range", domainbooking.ErrInvalidRange},
	{"start_in_past", domainbooking.ErrStartInPast},
	{"listing_inactive", domainbooking.ErrListingInactive},
	{"own_listing", domainbooking.ErrOwnListing},
	{"payout_exceeds_earnings", domainpayouts.ErrPayoutExceedsEarnings},
	{"invalid_amount", domainpayouts.ErrInvalidAmount},
}

func errorKind(err error) string {
	for _, e := range replayableErrors {
		if errors.Is(err, e.sentinel) {
			return e.kind
		}
	}
	return ""
}

func replayError(rec IdempotencyRecord) error {
	for _, e := range replayableErrors {
		if e.kind == rec.ErrorKind {
			return &replayedError{msg: rec.Error, sentinel: e.sentinel}
		}
	}
	return errors.New(rec.Error)
}

// replayedError restores the recorded message while unwrapping to the
// original sentinel.
type replayedError struct {
	msg      string
	sentinel error
}

func (e *replayedError) Error() string { return e.msg }

func (e *replayedError) Unwrap() error { return e.sentinel }

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// Idempotency replays the recorded result for a repeated command key instead
// of re-executing the handler; duplicate client retries observe the first
// outcome.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return nextFn(ctx, cmd)
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				if rec.Error != "" {
					return nil, replayError(rec)
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return normalizePrototype(proto), nil
			}
			result, err := nextFn(ctx, cmd)
			record := IdempotencyRecord{
				Key:        key,
				OccurredAt: time.Now().UTC(),
			}
			if err != nil {
				record.Error = err.Error()
				record.ErrorKind = errorKind(err)
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, saveErr
			}
			return result, nil
		})
	}
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
