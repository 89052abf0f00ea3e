// Package migrate places a persisted store at a schema version and moves it
// forward one version at a time.
package migrate

import (
	"context"

	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/rowstore"
)

// Resolve returns the version the store at locator currently matches.
//
// Versions are tried from the registry's highest down to 0 and the first
// compatible one wins. When no store exists yet, Resolve returns the
// registry's version with exists=false. A store matching no version yields a
// NO_COMPATIBLE_VERSION error.
func Resolve(ctx context.Context, eng rowstore.Engine, reg *registry.Registry, locator string) (version int, exists bool, err error) {
	md, ok, err := eng.Metadata(ctx, locator)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return reg.Version(), false, nil
	}

	for v := reg.Version(); v >= 0; v-- {
		desc, err := reg.StorageSchema(v)
		if err != nil {
			return 0, true, err
		}
		if eng.IsCompatible(desc, md) {
			return v, true, nil
		}
	}

	return 0, true, &Error{
		Code:    ErrCodeNoCompatibleVersion,
		Locator: locator,
		From:    reg.Version(),
		To:      -1,
	}
}
