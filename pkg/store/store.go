// Package store persists form records for the reference forms API.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formwizard/pkg/formsapi"
)

var (
	// ErrNotFound is returned when no record has the requested document id.
	ErrNotFound = errors.New("store: form not found")
	// ErrInvalid is returned for payloads missing a title or a schema.
	ErrInvalid = errors.New("store: invalid form payload")
)

// Store reads and writes form records keyed by document id.
type Store interface {
	Create(ctx context.Context, payload formsapi.FormPayload) (formsapi.FormRecord, error)
	Update(ctx context.Context, documentID string, payload formsapi.FormPayload) (formsapi.FormRecord, error)
	Get(ctx context.Context, documentID string) (formsapi.FormRecord, error)
	List(ctx context.Context) ([]formsapi.FormRecord, error)
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time

func checkPayload(payload formsapi.FormPayload) error {
	if strings.TrimSpace(payload.Title) == "" {
		return errors.Join(ErrInvalid, errors.New("title is required"))
	}
	if len(payload.JSONSchema) == 0 {
		return errors.Join(ErrInvalid, errors.New("json_schema is required"))
	}
	return nil
}

func newDocumentID() string {
	return uuid.NewString()
}

func systemClock() time.Time {
	return time.Now().UTC()
}
