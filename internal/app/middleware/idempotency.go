package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"deskrent/internal/app/commands"
)

// IdempotentCommand is implemented by commands that carry a client-supplied Idempotency-Key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer to a zero value of the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

// IdempotencyStore records command results by key.
// Reserve atomically claims an unseen key, or returns the completed record when one exists;
// a key claimed but not yet saved yields ErrIdempotencyInProgress. Release drops an unsaved claim.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Reserve(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
	Release(ctx context.Context, key string) error
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
	ErrIdempotencyInProgress = errors.New("middleware: a request with this idempotency key is in progress")

	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// Idempotency replays the stored result of a command whose key was already seen.
// The key is reserved before the handler runs, so concurrent duplicates fail with
// ErrIdempotencyInProgress instead of executing twice.
// Failures are not stored: the reservation is released and the caller may correct the request and retry.
// Keys are scoped by command key and actor so two users cannot collide.
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
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := scopedKey(idCmd)
			rec, found, err := store.Reserve(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return derefPrototype(proto), nil
			}
			result, err := nextFn(ctx, cmd)
			if err != nil {
				if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
					return nil, errors.Join(err, relErr)
				}
				return nil, err
			}
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					_ = store.Release(context.WithoutCancel(ctx), key)
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

func scopedKey(cmd IdempotentCommand) string {
	key := cmd.Key() + ":"
	if actor, ok := cmd.(commands.ActorCommand); ok {
		key += actor.Actor() + ":"
	}
	return key + cmd.IdempotencyKey()
}

// derefPrototype turns the decoded *T back into T so replays match the handler result type.
func derefPrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return proto
}
