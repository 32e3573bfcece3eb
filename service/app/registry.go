package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

// EventSuffix ends the name of every state-change event type.
const EventSuffix = "StateChangeEvent"

// Registry maps topics to the handlers that consume them.
type Registry struct {
	handlers map[string]mq.MessageHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]mq.MessageHandler)}
}

// Register binds handler to topic. A topic can only be registered once.
func (r *Registry) Register(topic string, handler mq.MessageHandler) error {
	switch {
	case topic == "" || strings.Contains(topic, "|"):
		return fmt.Errorf("%w: invalid topic %q", mq.ErrConfiguration, topic)
	case handler == nil:
		return fmt.Errorf("%w: nil handler for topic %s", mq.ErrConfiguration, topic)
	}
	if _, ok := r.handlers[topic]; ok {
		return fmt.Errorf("%w: topic %s is already registered", mq.ErrConfiguration, topic)
	}
	r.handlers[topic] = handler
	return nil
}

// RegisterEvent registers a JSON handler for the event type T on the topic
// named after it (see EventTopic).
func RegisterEvent[T any](r *Registry, handle func(ctx context.Context, msg *mq.Message, event T) (mq.Outcome, error)) error {
	topic, err := EventTopic[T]()
	if err != nil {
		return err
	}
	return r.Register(topic, mq.JSON(handle))
}

// Handler returns the handler registered for topic.
func (r *Registry) Handler(topic string) (mq.MessageHandler, bool) {
	h, ok := r.handlers[topic]
	return h, ok
}

// Topics returns the registered topics in order.
func (r *Registry) Topics() []string {
	res := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		res = append(res, t)
	}
	sort.Strings(res)
	return res
}

// EventTopic derives the topic from the name of T: the name less
// EventSuffix, in kebab case. TaskCreatedStateChangeEvent is task-created.
func EventTopic[T any]() (string, error) {
	name := reflect.TypeOf((*T)(nil)).Elem().Name()
	base, ok := strings.CutSuffix(name, EventSuffix)
	if !ok || base == "" {
		return "", fmt.Errorf("%w: event type %q must be named <Entity><Event>%s", mq.ErrConfiguration, name, EventSuffix)
	}
	return kebab(base), nil
}

// kebab converts PascalCase to kebab-case. Runs of capitals are one word:
// HTTPRequest is http-request.
func kebab(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, c := range rs {
		if i > 0 && unicode.IsUpper(c) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}

var errNoHandler = errors.New("no handler registered")
