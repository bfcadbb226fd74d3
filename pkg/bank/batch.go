package bank

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// BatchResult pairs a transaction's execution result with the error that
// kept it from executing, if any.
type BatchResult struct {
	*TxResult
	Rejected error
}

// ProcessBatch executes txs concurrently with at most concurrency in flight.
// Transactions writing a common account run one at a time; their relative
// order is unspecified. The returned error is set only if ctx is cancelled.
func (b *Bank) ProcessBatch(ctx context.Context, txs []*solana.Transaction, concurrency int) ([]BatchResult, error) {
	results := make([]BatchResult, len(txs))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, tx := range txs {
		g.Go(func() error {
			result, err := b.ProcessTransaction(gctx, tx)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				klog.V(2).Infof("batch tx %d rejected: %s", i, err)
				results[i] = BatchResult{Rejected: err}
				return nil
			}
			results[i] = BatchResult{TxResult: result}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}
