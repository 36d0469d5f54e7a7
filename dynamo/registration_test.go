package dynamo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/International-Combat-Archery-Alliance/event-ticketing/events"
	"github.com/International-Combat-Archery-Alliance/event-ticketing/registration"
	"github.com/Rhymond/go-money"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistration(event events.Event, accountID uuid.UUID, code string) registration.Registration {
	return registration.Registration{
		ID:            uuid.New(),
		EventID:       event.ID,
		AccountID:     accountID,
		PaymentAmount: money.New(2500, money.USD),
		PaymentStatus: registration.PAYMENT_COMPLETED,
		TicketCode:    code,
		RegisteredAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

func requireRegistrationReason(t *testing.T, err error, reason registration.ErrorReason) {
	t.Helper()
	var regErr *registration.Error
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, reason, regErr.Reason)
}

func TestCreateRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("successfully create a registration", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(2)
		require.NoError(t, db.CreateEvent(ctx, event))

		reg := newTestRegistration(event, uuid.New(), "ABCD1234")
		require.NoError(t, db.CreateRegistration(ctx, reg))

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumRegistrations)

		resp, err := db.GetAllRegistrationsForEvent(ctx, event.ID, 10, nil)
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, reg.ID, resp.Data[0].ID)
		assert.Equal(t, reg.TicketCode, resp.Data[0].TicketCode)
		assert.Equal(t, reg.PaymentAmount, resp.Data[0].PaymentAmount)
		assert.Equal(t, registration.PAYMENT_COMPLETED, resp.Data[0].PaymentStatus)
		assert.True(t, reg.RegisteredAt.Equal(resp.Data[0].RegisteredAt))
	})

	t.Run("event does not exist", func(t *testing.T) {
		resetTable(ctx)

		err := db.CreateRegistration(ctx, newTestRegistration(newTestEvent(5), uuid.New(), "ABCD1234"))
		requireRegistrationReason(t, err, registration.REASON_ASSOCIATED_EVENT_DOES_NOT_EXIST)
	})

	t.Run("same account twice", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(5)
		require.NoError(t, db.CreateEvent(ctx, event))
		account := uuid.New()

		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, account, "FIRST001")))

		err := db.CreateRegistration(ctx, newTestRegistration(event, account, "SECOND02"))
		requireRegistrationReason(t, err, registration.REASON_REGISTRATION_ALREADY_EXISTS)

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumRegistrations)
	})

	t.Run("already registered wins over a full event", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(1)
		require.NoError(t, db.CreateEvent(ctx, event))
		account := uuid.New()

		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, account, "FIRST001")))

		err := db.CreateRegistration(ctx, newTestRegistration(event, account, "SECOND02"))
		requireRegistrationReason(t, err, registration.REASON_REGISTRATION_ALREADY_EXISTS)
	})

	t.Run("full event", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(1)
		require.NoError(t, db.CreateEvent(ctx, event))

		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "FIRST001")))

		err := db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "SECOND02"))
		requireRegistrationReason(t, err, registration.REASON_CAPACITY_EXCEEDED)

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.NumRegistrations)
	})

	t.Run("ticket code already issued for another event", func(t *testing.T) {
		resetTable(ctx)
		first := newTestEvent(5)
		second := newTestEvent(5)
		require.NoError(t, db.CreateEvent(ctx, first))
		require.NoError(t, db.CreateEvent(ctx, second))

		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(first, uuid.New(), "SAME0001")))

		err := db.CreateRegistration(ctx, newTestRegistration(second, uuid.New(), "SAME0001"))
		requireRegistrationReason(t, err, registration.REASON_TICKET_CODE_TAKEN)

		got, err := db.GetEvent(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.NumRegistrations, "a failed registration leaves no trace")
	})

	t.Run("capacity lowered below the current count", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(3)
		require.NoError(t, db.CreateEvent(ctx, event))
		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "CODE0001")))
		require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "CODE0002")))

		event.Capacity = 1
		require.NoError(t, db.UpdateEvent(ctx, event))

		err := db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), "CODE0003"))
		requireRegistrationReason(t, err, registration.REASON_CAPACITY_EXCEEDED)
	})
}

func TestConcurrentRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("two accounts racing for the last spot", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(1)
		require.NoError(t, db.CreateEvent(ctx, event))

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), fmt.Sprintf("RACE000%d", i)))
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			requireRegistrationReason(t, err, registration.REASON_CAPACITY_EXCEEDED)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("many accounts never overbook", func(t *testing.T) {
		resetTable(ctx)
		const capacity = 5
		const racers = 20
		event := newTestEvent(capacity)
		require.NoError(t, db.CreateEvent(ctx, event))

		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = db.CreateRegistration(ctx, newTestRegistration(event, uuid.New(), fmt.Sprintf("MANY%04d", i)))
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			}
		}

		resp, err := db.GetAllRegistrationsForEvent(ctx, event.ID, 50, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(resp.Data), capacity)
		assert.Equal(t, succeeded, len(resp.Data))

		got, err := db.GetEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, len(resp.Data), got.NumRegistrations)
	})
}

func TestGetAllRegistrationsForEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("no registrations found for an event", func(t *testing.T) {
		resetTable(ctx)

		resp, err := db.GetAllRegistrationsForEvent(ctx, uuid.New(), 10, nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Data)
		assert.False(t, resp.HasNextPage)
	})

	t.Run("pagination", func(t *testing.T) {
		resetTable(ctx)
		event := newTestEvent(10)
		require.NoError(t, db.CreateEvent(ctx, event))

		seen := map[uuid.UUID]bool{}
		for i := range 5 {
			reg := newTestRegistration(event, uuid.New(), fmt.Sprintf("PAGE%04d", i))
			require.NoError(t, db.CreateRegistration(ctx, reg))
			seen[reg.ID] = false
		}

		var cursor *string
		pages := 0
		for {
			resp, err := db.GetAllRegistrationsForEvent(ctx, event.ID, 2, cursor)
			require.NoError(t, err)
			pages++
			for _, reg := range resp.Data {
				assert.False(t, seen[reg.ID], "registration returned twice")
				seen[reg.ID] = true
			}
			if !resp.HasNextPage {
				break
			}
			cursor = resp.Cursor
		}

		assert.Equal(t, 3, pages)
		for id, found := range seen {
			assert.True(t, found, "registration %s never returned", id)
		}
	})
}

func TestGetRegistrationsForAccount(t *testing.T) {
	ctx := context.Background()
	resetTable(ctx)

	account := uuid.New()
	var evs []events.Event
	for range 3 {
		event := newTestEvent(5)
		require.NoError(t, db.CreateEvent(ctx, event))
		evs = append(evs, event)
	}

	for i, event := range evs {
		reg := newTestRegistration(event, account, fmt.Sprintf("MINE%04d", i))
		reg.RegisteredAt = reg.RegisteredAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.CreateRegistration(ctx, reg))
	}
	require.NoError(t, db.CreateRegistration(ctx, newTestRegistration(evs[0], uuid.New(), "OTHER001")))

	// GSI reads are eventually consistent
	var regs []registration.Registration
	require.Eventually(t, func() bool {
		var err error
		regs, err = db.GetRegistrationsForAccount(ctx, account)
		return err == nil && len(regs) == 3
	}, 5*time.Second, 100*time.Millisecond)

	assert.Equal(t, evs[2].ID, regs[0].EventID, "newest first")
	assert.Equal(t, evs[0].ID, regs[2].EventID)
	for _, reg := range regs {
		assert.Equal(t, account, reg.AccountID)
	}
}

func TestRegistrationCancellationWhenMarkerLookupFails(t *testing.T) {
	event := newTestEvent(1)
	reg := newTestRegistration(event, uuid.New(), "MARKER01")

	canceled := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{
				Code: aws.String(cancellationConditionFailed),
				Item: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: eventPK(event.ID)}},
			},
			{Code: aws.String("None")},
			{Code: aws.String("None")},
			{Code: aws.String("None")},
		},
	}

	// A cancelled context makes the follow-up read fail.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.registrationCancellationError(ctx, reg, canceled)

	requireRegistrationReason(t, err, registration.REASON_FAILED_TO_FETCH)
}
