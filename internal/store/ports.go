// Package store declares the persistence ports for the portfolio document.
package store

import (
	"context"
	"errors"

	"rendita/internal/core"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("portfolio not found")

// Ports for outbound adapters.
type (
	PortfolioReader interface {
		Load(ctx context.Context) (core.PortfolioState, error)
	}

	PortfolioWriter interface {
		// Save replaces the stored document. Last write wins.
		Save(ctx context.Context, state core.PortfolioState) error
	}

	Repository interface {
		PortfolioReader
		PortfolioWriter
	}

	// Pinger is implemented by backends that can report their health.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
