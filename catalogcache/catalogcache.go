// Package catalogcache keeps recently read events in memory in front of an
// events.Repository. Writes through the wrapper invalidate what they touch.
// Registration counts in cached events may lag by up to the TTL.
package catalogcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/ptr"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultExpiration      = 30 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
)

var _ events.Repository = &Repository{}

type Repository struct {
	events.Repository

	logger *slog.Logger
	single *gocache.Cache
	pages  *gocache.Cache
}

func New(repo events.Repository, logger *slog.Logger, expiration time.Duration) *Repository {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Repository{
		Repository: repo,
		logger:     logger,
		single:     gocache.New(expiration, DefaultCleanupInterval),
		pages:      gocache.New(expiration, DefaultCleanupInterval),
	}
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	key := id.String()
	if cached, found := r.single.Get(key); found {
		if event, ok := cached.(events.Event); ok {
			return event, nil
		}
		r.logger.ErrorContext(ctx, "wrong type in event cache", slog.String("key", key))
	}

	event, err := r.Repository.GetEvent(ctx, id)
	if err != nil {
		return events.Event{}, err
	}

	r.single.SetDefault(key, event)
	return event, nil
}

func (r *Repository) GetEvents(ctx context.Context, limit int32, cursor *string) (events.GetEventsResponse, error) {
	key := pageKey(limit, cursor)
	if cached, found := r.pages.Get(key); found {
		if page, ok := cached.(events.GetEventsResponse); ok {
			return page, nil
		}
		r.logger.ErrorContext(ctx, "wrong type in event page cache", slog.String("key", key))
	}

	page, err := r.Repository.GetEvents(ctx, limit, cursor)
	if err != nil {
		return events.GetEventsResponse{}, err
	}

	r.pages.SetDefault(key, page)
	return page, nil
}

func (r *Repository) CreateEvent(ctx context.Context, event events.Event) error {
	defer r.pages.Flush()
	return r.Repository.CreateEvent(ctx, event)
}

func (r *Repository) UpdateEvent(ctx context.Context, event events.Event) error {
	defer r.invalidate(event.ID)
	return r.Repository.UpdateEvent(ctx, event)
}

func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	defer r.invalidate(id)
	return r.Repository.DeleteEvent(ctx, id)
}

// Invalidate drops an event and every cached page. Callers that change an
// event behind the wrapper's back, such as a new registration, use it.
func (r *Repository) Invalidate(id uuid.UUID) {
	r.invalidate(id)
}

func (r *Repository) invalidate(id uuid.UUID) {
	r.single.Delete(id.String())
	r.pages.Flush()
}

func pageKey(limit int32, cursor *string) string {
	return fmt.Sprintf("%d:%s", limit, ptr.Deref(cursor, ""))
}
