package content

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aaronland/go-roster"
)

// StoreInitializationFunc is a function defined by individual Store implementations to create a new instance from a URI.
type StoreInitializationFunc func(ctx context.Context, uri string) (Store, error)

var store_roster roster.Roster

// RegisterStore associates a URI scheme with a StoreInitializationFunc.
func RegisterStore(ctx context.Context, scheme string, init_func StoreInitializationFunc) error {

	err := ensureStoreRoster()

	if err != nil {
		return err
	}

	return store_roster.Register(ctx, scheme, init_func)
}

func ensureStoreRoster() error {

	if store_roster == nil {

		r, err := roster.NewDefaultRoster()

		if err != nil {
			return fmt.Errorf("Failed to create store roster, %w", err)
		}

		store_roster = r
	}

	return nil
}

// NewStore returns a new Store instance for the registered scheme of `uri`.
func NewStore(ctx context.Context, uri string) (Store, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse store URI, %w", err)
	}

	err = ensureStoreRoster()

	if err != nil {
		return nil, err
	}

	i, err := store_roster.Driver(ctx, u.Scheme)

	if err != nil {
		return nil, fmt.Errorf("Failed to find store for '%s' scheme, %w", u.Scheme, err)
	}

	init_func := i.(StoreInitializationFunc)
	return init_func(ctx, uri)
}

// StoreSchemes returns the list of URI schemes that have been registered.
func StoreSchemes() []string {

	ctx := context.Background()
	schemes := []string{}

	err := ensureStoreRoster()

	if err != nil {
		return schemes
	}

	for _, dr := range store_roster.Drivers(ctx) {
		scheme := fmt.Sprintf("%s://", strings.ToLower(dr))
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)
	return schemes
}
