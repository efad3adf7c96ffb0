// Package store persists per-address exit-node observations keyed by the
// canonical address form.
package store

import (
	"context"
	"errors"

	"github.com/jmerrifield20/exitrisk/internal/risk"
	"github.com/jmerrifield20/exitrisk/pkg/ipaddr"
)

// ErrNotFound is returned when no observation exists for an address.
var ErrNotFound = errors.New("address not found")

// ErrNonCanonical is returned by Upsert for an address key that is not in
// canonical form.
var ErrNonCanonical = errors.New("address is not in canonical form")

// Observation is the stored signal set for one address. Nil fields are
// signals the ingestion process never recorded.
type Observation struct {
	Address          string  `json:"ip"`
	IsExitNode       *bool   `json:"is_tor_exit_node"`
	RequestFrequency *int    `json:"request_frequency"`
	Country          *string `json:"country"`
}

// Signals returns the scoring inputs carried by the observation.
func (o *Observation) Signals() risk.Signals {
	return risk.Signals{
		IsExitNode:       o.IsExitNode,
		RequestFrequency: o.RequestFrequency,
		Country:          o.Country,
	}
}

// Store is the persistence interface consumed by the check service.
// Addresses passed to Lookup and Delete must already be canonical.
type Store interface {
	Lookup(ctx context.Context, address string) (*Observation, error)
	Delete(ctx context.Context, address string) error
	List(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, obs *Observation) error
	Ping(ctx context.Context) error
}

func checkCanonical(address string) error {
	if canon, ok := ipaddr.Normalize(address); !ok || canon != address {
		return ErrNonCanonical
	}
	return nil
}
