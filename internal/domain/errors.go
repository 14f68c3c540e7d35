package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrStoreUnavailable     = errors.New("shared store unavailable")
	ErrMalformedLedgerEntry = errors.New("malformed ledger entry")
	ErrMissingAttributes    = errors.New("missing session attributes")
	ErrInvalidActivityID    = errors.New("invalid activity id")
	ErrSessionNotFound      = errors.New("session not found")
	ErrPresentationNotFound = errors.New("presentation not found")
	ErrSecretNotFound       = errors.New("secret not found")
)

type MalformedEntryError struct {
	Raw    string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed ledger entry %q: %s", e.Raw, e.Reason)
}

func (e *MalformedEntryError) Is(target error) bool {
	return target == ErrMalformedLedgerEntry
}

type MissingAttributesError struct {
	PresentationID PresentationID
	Fields         []string
}

func (e *MissingAttributesError) Error() string {
	return fmt.Sprintf("missing session attributes for presentation %q: %s", e.PresentationID, strings.Join(e.Fields, ", "))
}

func (e *MissingAttributesError) Is(target error) bool {
	return target == ErrMissingAttributes
}

type InvalidActivityIDError struct {
	ID string
}

func (e *InvalidActivityIDError) Error() string {
	return fmt.Sprintf("invalid activity id %q: must not contain %q or surrounding whitespace", e.ID, entrySeparator)
}

func (e *InvalidActivityIDError) Is(target error) bool {
	return target == ErrInvalidActivityID
}
