package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/accounts"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/google/uuid"
)

// Ticket is a registration joined with its event at read time. Event is nil
// when the event has since been deleted.
type Ticket struct {
	Registration
	Event *events.Event
}

// Attendee is a registration joined with the registering account's public
// fields. Account is nil when the account can no longer be found.
type Attendee struct {
	Registration
	Account *accounts.PublicProfile
}

type AttendeesResponse struct {
	Data        []Attendee
	Cursor      *string
	HasNextPage bool
}

func ListForAccount(ctx context.Context, accountID uuid.UUID, registrationRepo Repository, eventRepo events.Repository) ([]Ticket, error) {
	regs, err := registrationRepo.GetRegistrationsForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]*events.Event, len(regs))
	tickets := make([]Ticket, 0, len(regs))
	for _, reg := range regs {
		event, ok := seen[reg.EventID]
		if !ok {
			event, err = lookupEvent(ctx, eventRepo, reg.EventID)
			if err != nil {
				return nil, err
			}
			seen[reg.EventID] = event
		}
		tickets = append(tickets, Ticket{Registration: reg, Event: event})
	}

	return tickets, nil
}

func ListForEvent(ctx context.Context, eventID uuid.UUID, limit int32, cursor *string, registrationRepo Repository, accountRepo accounts.Repository) (AttendeesResponse, error) {
	page, err := registrationRepo.GetAllRegistrationsForEvent(ctx, eventID, limit, cursor)
	if err != nil {
		return AttendeesResponse{}, err
	}

	attendees := make([]Attendee, 0, len(page.Data))
	for _, reg := range page.Data {
		profile, err := lookupProfile(ctx, accountRepo, reg.AccountID)
		if err != nil {
			return AttendeesResponse{}, err
		}
		attendees = append(attendees, Attendee{Registration: reg, Account: profile})
	}

	return AttendeesResponse{
		Data:        attendees,
		Cursor:      page.Cursor,
		HasNextPage: page.HasNextPage,
	}, nil
}

func lookupEvent(ctx context.Context, repo events.Repository, id uuid.UUID) (*events.Event, error) {
	event, err := repo.GetEvent(ctx, id)
	if err != nil {
		var eventErr *events.Error
		if errors.As(err, &eventErr) && eventErr.Reason == events.REASON_EVENT_DOES_NOT_EXIST {
			return nil, nil
		}
		return nil, NewFailedToFetchError(fmt.Sprintf("Failed to fetch event %q", id), err)
	}
	return &event, nil
}

func lookupProfile(ctx context.Context, repo accounts.Repository, id uuid.UUID) (*accounts.PublicProfile, error) {
	account, err := repo.GetAccount(ctx, id)
	if err != nil {
		var accountErr *accounts.Error
		if errors.As(err, &accountErr) && accountErr.Reason == accounts.REASON_ACCOUNT_DOES_NOT_EXIST {
			return nil, nil
		}
		return nil, NewFailedToFetchError(fmt.Sprintf("Failed to fetch account %q", id), err)
	}
	profile := account.PublicProfile()
	return &profile, nil
}
