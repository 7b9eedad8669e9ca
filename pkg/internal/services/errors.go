package services

import (
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Error kinds surfaced to clients. Every error a Service returns wraps
// exactly one of them, so adapters can map with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

var kinds = []error{ErrNotFound, ErrForbidden, ErrValidation, ErrConflict, ErrUnauthorized, ErrInternal}

func newError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// KindOf returns the client-facing kind wrapped by err, ErrInternal when
// none is recognised.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// storeError turns what the store returned into one of the client kinds.
// Anything unexpected is logged here and hidden behind ErrInternal.
func storeError(err error, subject string) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(ErrNotFound, "%s not found", subject)
	case errors.Is(err, store.ErrGroupNameRequired),
		errors.Is(err, store.ErrDirectPairInvalid),
		errors.Is(err, store.ErrParticipantRequired):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newError(ErrConflict, "%s already exists", subject)
	}

	log.Error().Err(err).Str("subject", subject).
		Bool("transient", store.IsTransient(err)).
		Msg("An error occurred when accessing the message store...")
	return newError(ErrInternal, "unable to process %s", subject)
}
