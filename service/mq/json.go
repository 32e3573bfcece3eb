package mq

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSON adapts a handler of decoded payloads. A payload that cannot be decoded
// will never decode on redelivery either, so it is poisoned.
func JSON[T any](fn func(ctx context.Context, msg *Message, payload T) (Outcome, error)) MessageHandler {
	return func(ctx context.Context, msg *Message) (Outcome, error) {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return Poisoned, Poison(fmt.Errorf("decode message %s: %w", msg.ID, err))
		}
		return fn(ctx, msg, payload)
	}
}
