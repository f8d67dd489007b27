package gridnc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"go.ngs.io/climate-grid/internal/domain"
)

const lockRetryDelay = 250 * time.Millisecond

// acquire takes a shared or exclusive advisory lock on path+".lock",
// retrying until timeout. Exclusive locks serialize writers to one year.
func acquire(ctx context.Context, path string, exclusive bool, timeout time.Duration) (*flock.Flock, error) {
	lk := flock.New(path + ".lock")

	if timeout <= 0 {
		timeout = time.Nanosecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = lk.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lk.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, &domain.StoreAcquisitionTimeoutError{Path: path, Timeout: timeout}
	}
	return lk, nil
}
