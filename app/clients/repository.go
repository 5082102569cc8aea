package clients

import (
	"context"
	"errors"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
)

//go:generate mockgen -destination=mock_repository.go -package=clients github.com/IamSpotted/ITSF-Agent/app/clients Repository

// ErrNotConfigured is returned by a Repository that has no usable connection settings.
var ErrNotConfigured = errors.New("remote store is not configured")

// Repository is the remote device record store, keyed by hostname.
// Insert, Update and TouchDiscovered report whether a row was written.
type Repository interface {
	FindByKey(ctx context.Context, hostname string) (*domains.Record, error)
	Insert(ctx context.Context, snap domains.Snapshot) (bool, error)
	Update(ctx context.Context, rec domains.Record) (bool, error)
	TouchDiscovered(ctx context.Context, hostname string) (bool, error)
	Ping(ctx context.Context) error
}
