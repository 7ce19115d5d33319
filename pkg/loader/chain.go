// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"context"
	"errors"
)

// Chain tries each loader in order and returns the first success. A
// not-found failure for the requested identifier falls through to the next
// loader; any other error stops the chain and is returned unchanged, including
// a module that was found but failed to load one of its own dependencies.
type Chain []Loader

// Load implements Loader.
func (c Chain) Load(ctx context.Context, identifier string) (any, error) {
	var notFound error
	for _, l := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := l.Load(ctx, identifier)
		if err == nil {
			return v, nil
		}
		if !isNotFoundFor(err, identifier) {
			return nil, err
		}
		notFound = err
	}
	if notFound != nil {
		return nil, notFound
	}
	return nil, &NotFoundError{Identifier: identifier}
}

func isNotFoundFor(err error, identifier string) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Identifier == identifier
	}
	return false
}
