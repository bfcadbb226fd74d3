package bank

import (
	"slices"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.firedancer.io/counter/pkg/util"
)

// accountLocks serializes transactions that write the same account.
type accountLocks struct {
	m cmap.ConcurrentMap[solana.PublicKey, *sync.Mutex]
}

func newAccountLocks() *accountLocks {
	return &accountLocks{m: cmap.NewStringer[solana.PublicKey, *sync.Mutex]()}
}

func (l *accountLocks) get(pubkey solana.PublicKey) *sync.Mutex {
	l.m.SetIfAbsent(pubkey, new(sync.Mutex))
	mu, _ := l.m.Get(pubkey)
	return mu
}

// lock acquires the locks of pubkeys in key order and returns the time spent
// waiting along with the function releasing them.
func (l *accountLocks) lock(pubkeys []solana.PublicKey) (time.Duration, func()) {
	sorted := util.DedupePubkeys(slices.Clone(pubkeys))

	start := time.Now()
	held := make([]*sync.Mutex, 0, len(sorted))
	for _, pubkey := range sorted {
		mu := l.get(pubkey)
		mu.Lock()
		held = append(held, mu)
	}
	waited := time.Since(start)

	return waited, func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
