// Package service implements the check, list, and delete operations exposed
// by the HTTP layer on top of the store and the risk pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/exitrisk/internal/risk"
	"github.com/jmerrifield20/exitrisk/internal/store"
	"github.com/jmerrifield20/exitrisk/pkg/ipaddr"
	"go.uber.org/zap"
)

var (
	// ErrAddressRequired is returned when the caller supplied no address.
	ErrAddressRequired = errors.New("address required")

	// ErrInvalidAddress is returned when the address is neither IPv4 nor IPv6.
	ErrInvalidAddress = errors.New("invalid address format")
)

// LastCheckedLayout is the format of CheckResult.LastChecked.
const LastCheckedLayout = "2006-01-02 15:04:05"

// CheckResult is the outcome of a single address check.
type CheckResult struct {
	Address string

	// Found is false when the store has no row for Address. A not-found
	// result carries no risk level and is never an Error-level result.
	Found bool

	IsTorExitNode bool
	Risk          risk.Result
	LastChecked   time.Time
}

// NotFoundMessage is the human-readable message for a not-found result.
func (r *CheckResult) NotFoundMessage() string {
	return fmt.Sprintf("The IP %s is not found in the database.", r.Address)
}

// DeleteStatus is the outcome of a delete request.
type DeleteStatus string

const (
	DeleteStatusDeleted  DeleteStatus = "deleted"
	DeleteStatusNotFound DeleteStatus = "not_found"
)

// ScoreObserverFunc is an optional callback invoked with every scored level.
type ScoreObserverFunc func(level risk.Level)

// CheckService answers check, list and delete requests.
type CheckService struct {
	store   store.Store
	scorer  risk.Scorer
	now     func() time.Time
	observe ScoreObserverFunc // nil = no observation
	logger  *zap.Logger
}

// NewCheckService creates a new CheckService.
func NewCheckService(st store.Store, scorer risk.Scorer, logger *zap.Logger) *CheckService {
	return &CheckService{
		store:  st,
		scorer: scorer,
		now:    time.Now,
		logger: logger,
	}
}

// SetScoreObserver configures the per-score callback.
func (s *CheckService) SetScoreObserver(fn ScoreObserverFunc) {
	s.observe = fn
}

// SetClock overrides the time source used for LastChecked.
func (s *CheckService) SetClock(now func() time.Time) {
	s.now = now
}

// Normalize trims raw and returns its canonical address form.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrAddressRequired
	}
	addr, ok := ipaddr.Normalize(raw)
	if !ok {
		return "", ErrInvalidAddress
	}
	return addr, nil
}

// Check normalizes raw, looks it up and scores it when found.
// Store failures are returned as errors; scoring never fails.
func (s *CheckService) Check(ctx context.Context, raw string) (*CheckResult, error) {
	addr, err := Normalize(raw)
	if err != nil {
		s.logger.Warn("invalid IP format provided", zap.String("ip", raw))
		return nil, err
	}

	res := &CheckResult{Address: addr, LastChecked: s.now()}

	obs, err := s.store.Lookup(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Info("address not found", zap.String("address", addr))
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup address: %w", err)
	}

	res.Found = true
	if obs.IsExitNode != nil {
		res.IsTorExitNode = *obs.IsExitNode
	}
	res.Risk = s.scorer.Score(ctx, addr, obs.Signals())
	if s.observe != nil {
		s.observe(res.Risk.Level)
	}
	return res, nil
}

// List returns every stored address in ascending order.
func (s *CheckService) List(ctx context.Context) ([]string, error) {
	addrs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addrs, nil
}

// Delete removes the observation for raw.
func (s *CheckService) Delete(ctx context.Context, raw string) (DeleteStatus, error) {
	addr, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	err = s.store.Delete(ctx, addr)
	if errors.Is(err, store.ErrNotFound) {
		return DeleteStatusNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("delete address: %w", err)
	}
	s.logger.Info("address deleted", zap.String("address", addr))
	return DeleteStatusDeleted, nil
}
