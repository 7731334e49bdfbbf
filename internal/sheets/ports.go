// Package sheets defines the outbound ports of the backup pipeline.
package sheets

import (
	"context"

	"somiti/internal/core"
)

type (
	// TransactionWriter mirrors a recorded transaction into the backup
	// destination.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) error
	}

	// TransactionDeleter removes a mirrored transaction by receipt id.
	TransactionDeleter interface {
		DeleteByID(ctx context.Context, id string) error
	}
)
