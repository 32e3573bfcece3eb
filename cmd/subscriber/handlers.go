package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/stuartleeks/service-bus-subscribers/service/app"
	"github.com/stuartleeks/service-bus-subscribers/service/mq"
)

var errMissingEntityID = errors.New("entity_id is required")

// StateChangeEvent is the payload shared by every state-change topic.
type StateChangeEvent struct {
	EntityID string `json:"entity_id"`
}

type (
	TaskCreatedStateChangeEvent struct {
		StateChangeEvent
		Title string `json:"title,omitempty"`
	}
	TaskUpdatedStateChangeEvent struct {
		StateChangeEvent
		Status string `json:"status,omitempty"`
	}
)

func registerHandlers(r *app.Registry, logger zerolog.Logger) error {
	return errors.Join(
		app.RegisterEvent(r, func(ctx context.Context, msg *mq.Message, ev TaskCreatedStateChangeEvent) (mq.Outcome, error) {
			if ev.EntityID == "" {
				return mq.Poisoned, mq.Poison(errMissingEntityID)
			}
			logger.Info().Str("msg_id", msg.ID).Str("entity_id", ev.EntityID).Str("title", ev.Title).Msg("Task created")
			return mq.Completed, nil
		}),
		app.RegisterEvent(r, func(ctx context.Context, msg *mq.Message, ev TaskUpdatedStateChangeEvent) (mq.Outcome, error) {
			if ev.EntityID == "" {
				return mq.Poisoned, mq.Poison(errMissingEntityID)
			}
			logger.Info().Str("msg_id", msg.ID).Str("entity_id", ev.EntityID).Str("status", ev.Status).Msg("Task updated")
			return mq.Completed, nil
		}),
	)
}
