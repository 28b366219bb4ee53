// Package balance keeps one observed balance per tracked address fresh, on a
// fixed interval and on demand, with concurrent refreshes coalesced into a
// single in-flight query.
package balance

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"

	"solrails/internal/ledger"
)

// Snapshot is the last observed balance. It is superseded as a whole on each
// refresh; a failed refresh keeps the previous value and marks it stale with
// the error attached, never clearing it.
type Snapshot struct {
	Address    solana.PublicKey
	Lamports   uint64
	ObservedAt time.Time
	Stale      bool
	Err        error
}

type Poller struct {
	ledger   ledger.Client
	addr     solana.PublicKey
	interval time.Duration
	now      func() time.Time

	group singleflight.Group

	mu   sync.RWMutex
	snap Snapshot
}

func NewPoller(l ledger.Client, addr solana.PublicKey, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		ledger:   l,
		addr:     addr,
		interval: interval,
		now:      time.Now,
		snap:     Snapshot{Address: addr},
	}
}

// Run refreshes on the configured interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	if _, err := p.Refresh(ctx); err != nil {
		log.Printf("initial balance refresh: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				log.Printf("balance refresh: %v", err)
			}
		}
	}
}

// Refresh queries the balance now. Concurrent calls for the same address
// share one in-flight query instead of issuing duplicates.
func (p *Poller) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := p.group.Do(p.addr.String(), func() (interface{}, error) {
		lamports, err := p.ledger.Balance(ctx, p.addr)
		if err != nil {
			p.markStale(err)
			return nil, err
		}
		snap := Snapshot{
			Address:    p.addr,
			Lamports:   lamports,
			ObservedAt: p.now(),
		}
		p.mu.Lock()
		p.snap = snap
		p.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return p.Snapshot(), err
	}
	return v.(Snapshot), nil
}

// Snapshot returns the current value without touching the network.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Poller) markStale(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Stale = true
	p.snap.Err = err
}
