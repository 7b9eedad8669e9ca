package services

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/rs/zerolog/log"
)

// retryOnce runs fn a second time when the first attempt hit a transient
// store failure. Store mutations are transactional, so a failed attempt
// left nothing behind.
func retryOnce[T any](fn func() (T, error)) (T, error) {
	out, err := fn()
	if err != nil && store.IsTransient(err) {
		log.Warn().Err(err).Msg("Transient store failure, retrying once...")
		out, err = fn()
	}
	return out, err
}

func retryOnceErr(fn func() error) error {
	_, err := retryOnce(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
