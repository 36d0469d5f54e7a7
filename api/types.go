package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
)

type ErrorCode string

const (
	AuthError            ErrorCode = "AuthError"
	Forbidden            ErrorCode = "Forbidden"
	NotFound             ErrorCode = "NotFound"
	AlreadyExists        ErrorCode = "AlreadyExists"
	CapacityExceeded     ErrorCode = "CapacityExceeded"
	EmailTaken           ErrorCode = "EmailTaken"
	InputValidationError ErrorCode = "InputValidationError"
	InvalidBody          ErrorCode = "InvalidBody"
	InvalidCursor        ErrorCode = "InvalidCursor"
	LimitOutOfBounds     ErrorCode = "LimitOutOfBounds"
	InternalError        ErrorCode = "InternalError"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type Message struct {
	Message string `json:"message"`
}

type SignUpRequest struct {
	FullName string      `json:"full_name"`
	Email    types.Email `json:"email"`
	Phone    string      `json:"phone,omitempty"`
	College  string      `json:"college,omitempty"`
	Course   string      `json:"course,omitempty"`
	Password string      `json:"password"`
}

type SignInRequest struct {
	Email    types.Email `json:"email"`
	Password string      `json:"password"`
}

type UserSummary struct {
	Id       uuid.UUID   `json:"id"`
	FullName string      `json:"full_name"`
	Email    types.Email `json:"email"`
	IsAdmin  bool        `json:"is_admin"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserSummary `json:"user"`
}

type Profile struct {
	Id        uuid.UUID   `json:"id"`
	FullName  string      `json:"full_name"`
	Email     types.Email `json:"email"`
	Phone     string      `json:"phone,omitempty"`
	College   string      `json:"college,omitempty"`
	Course    string      `json:"course,omitempty"`
	IsAdmin   bool        `json:"is_admin"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Event struct {
	Id               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Date             time.Time  `json:"date"`
	Location         string     `json:"location"`
	Price            float64    `json:"price"`
	Currency         string     `json:"currency"`
	MaxParticipants  int        `json:"max_participants"`
	NumRegistrations int        `json:"num_registrations"`
	SpotsRemaining   int        `json:"spots_remaining"`
	ImageUrl         *string    `json:"image_url,omitempty"`
	CreatedBy        *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type EventCreate struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Date            time.Time `json:"date"`
	Location        string    `json:"location"`
	Price           float64   `json:"price"`
	MaxParticipants int       `json:"max_participants"`
	ImageUrl        *string   `json:"image_url,omitempty"`
}

type EventUpdate struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
	ImageUrl        *string    `json:"image_url,omitempty"`
}

type EventsPage struct {
	Data        []Event `json:"data"`
	Cursor      *string `json:"cursor,omitempty"`
	HasNextPage bool    `json:"has_next_page"`
}

type RegistrationRequest struct {
	EventId       uuid.UUID `json:"event_id"`
	PaymentAmount float64   `json:"payment_amount"`
}

type Registration struct {
	Id            uuid.UUID `json:"id"`
	EventId       uuid.UUID `json:"event_id"`
	UserId        uuid.UUID `json:"user_id"`
	PaymentStatus string    `json:"payment_status"`
	PaymentAmount float64   `json:"payment_amount"`
	Currency      string    `json:"currency"`
	TicketCode    string    `json:"ticket_code"`
	RegisteredAt  time.Time `json:"registered_at"`
}

type Ticket struct {
	Registration
	Event *Event `json:"event,omitempty"`
}

type PublicProfile struct {
	FullName string      `json:"full_name"`
	Email    types.Email `json:"email"`
	Phone    string      `json:"phone,omitempty"`
}

type Attendee struct {
	Registration
	User *PublicProfile `json:"user,omitempty"`
}

type AttendeesPage struct {
	Data        []Attendee `json:"data"`
	Cursor      *string    `json:"cursor,omitempty"`
	HasNextPage bool       `json:"has_next_page"`
}

type Stats struct {
	TotalEvents        int                `json:"total_events"`
	TotalRegistrations int                `json:"total_registrations"`
	TotalRevenue       float64            `json:"total_revenue"`
	Currency           string             `json:"currency"`
	RevenueByCurrency  map[string]float64 `json:"revenue_by_currency"`
}
