package postgres

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// keysetCursor is the sort key of the last row handed out. The next page
// starts strictly after it.
type keysetCursor struct {
	At time.Time `json:"at"`
	ID uuid.UUID `json:"id"`
}

func encodeCursor(at time.Time, id uuid.UUID) *string {
	bytesJSON, err := json.Marshal(keysetCursor{At: at.UTC(), ID: id})
	if err != nil {
		panic(fmt.Sprintf("failed to encode cursor: %s", err))
	}
	c := base64.URLEncoding.EncodeToString(bytesJSON)
	return &c
}

func decodeCursor(cursor string) (keysetCursor, error) {
	bytesJSON, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return keysetCursor{}, fmt.Errorf("failed to b64 decode: %w", err)
	}

	var c keysetCursor
	if err := json.Unmarshal(bytesJSON, &c); err != nil {
		return keysetCursor{}, fmt.Errorf("failed to json decode: %w", err)
	}
	if c.ID == uuid.Nil {
		return keysetCursor{}, fmt.Errorf("cursor has no id")
	}
	return c, nil
}
