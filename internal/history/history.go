// Package history assembles a unified transfer history for an address by
// querying the ledger-indexing service in both directions and merging the
// results into a single newest-first timeline.
package history

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/etherpouch/etherpouch/internal/log"
	"github.com/etherpouch/etherpouch/internal/provider"
)

// ErrUnavailable means neither direction of the history query succeeded,
// so no records could be produced at all.
var ErrUnavailable = errors.New("transaction history unavailable")

// NativeAsset labels transfers whose asset symbol the indexing service
// left blank.
const NativeAsset = "ETH"

// Transfer directions relative to the queried address.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Record is one transfer in the unified history.
type Record struct {
	Direction    string // "sent" or "received"
	Amount       string // decimal amount in asset units
	Counterparty common.Address
	Hash         common.Hash
	BlockNumber  uint64
	Asset        string
}

// Result is the outcome of a history fetch. Degraded reports that one of
// the two direction queries failed and Records holds only the other half.
type Result struct {
	Records  []Record
	Degraded bool
}

// TransferSource is the indexing-service capability the aggregator needs.
// *provider.Client satisfies it.
type TransferSource interface {
	AssetTransfers(ctx context.Context, q provider.TransferQuery) ([]provider.Transfer, error)
}

// Aggregator fetches and merges per-direction transfer lists.
type Aggregator struct {
	source TransferSource
}

// New creates an aggregator over the given transfer source.
func New(source TransferSource) *Aggregator {
	return &Aggregator{source: source}
}

// Fetch queries sent and received transfers for addr concurrently and
// returns them merged newest-first. A failure in one direction degrades
// the result to the surviving half; failure of both returns
// ErrUnavailable.
func (a *Aggregator) Fetch(ctx context.Context, addr common.Address) (Result, error) {
	var (
		mu       sync.Mutex
		records  []Record
		failures int
	)

	g, gctx := errgroup.WithContext(ctx)

	fetch := func(q provider.TransferQuery, direction string) func() error {
		return func() error {
			transfers, err := a.source.AssetTransfers(gctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.History.Warn().Err(err).
					Str("direction", direction).
					Str("address", addr.Hex()).
					Msg("history query failed")
				failures++
				return nil
			}
			for _, t := range transfers {
				records = append(records, toRecord(t, direction))
			}
			return nil
		}
	}

	g.Go(fetch(provider.TransferQuery{FromAddress: &addr}, DirectionSent))
	g.Go(fetch(provider.TransferQuery{ToAddress: &addr}, DirectionReceived))
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	if failures == 2 {
		return Result{}, ErrUnavailable
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].BlockNumber > records[j].BlockNumber
	})

	return Result{Records: dedupe(records), Degraded: failures > 0}, nil
}

// toRecord maps a raw transfer row to a history record. The counterparty
// is the other end of the transfer relative to the queried address.
func toRecord(t provider.Transfer, direction string) Record {
	r := Record{
		Direction:   direction,
		Amount:      t.Value.String(),
		Hash:        t.Hash,
		BlockNumber: uint64(t.BlockNum),
		Asset:       t.Asset,
	}
	if r.Asset == "" {
		r.Asset = NativeAsset
	}
	switch direction {
	case DirectionSent:
		if t.To != nil {
			r.Counterparty = *t.To
		}
	case DirectionReceived:
		r.Counterparty = t.From
	}
	return r
}

// dedupe drops repeated rows with the same hash and direction, keeping the
// first occurrence. A self-transfer legitimately appears twice, once per
// direction, and is preserved.
func dedupe(records []Record) []Record {
	type key struct {
		hash      common.Hash
		direction string
	}
	seen := make(map[key]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		k := key{r.Hash, r.Direction}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
