// Package watch mirrors on-ledger campaign counters into the record store
// by following account change notifications.
package watch

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"

	"solana-mint-campaign/internal/solana"
	"solana-mint-campaign/internal/storage"
)

// counterDataLen is the minimum campaign account payload carrying the three
// u32 counters at offset 0: available, loaded, minted.
const counterDataLen = 12

// Counters is the decoded counter section of a campaign account.
type Counters struct {
	ItemsAvailable int
	ItemsLoaded    int
	ItemsMinted    int
	Slot           int64
}

// DecodeCounters parses the counter section out of a base64 account
// payload.
func DecodeCounters(data string) (*Counters, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	if len(raw) < counterDataLen {
		return nil, fmt.Errorf("account data is %d bytes, want at least %d", len(raw), counterDataLen)
	}
	return &Counters{
		ItemsAvailable: int(binary.LittleEndian.Uint32(raw[0:4])),
		ItemsLoaded:    int(binary.LittleEndian.Uint32(raw[4:8])),
		ItemsMinted:    int(binary.LittleEndian.Uint32(raw[8:12])),
	}, nil
}

// Watcher keeps mirrored campaign counters in sync with the ledger. The
// record store is a projection: ledger notifications always win.
type Watcher struct {
	ws        solana.WSClient
	campaigns storage.CampaignStore
	verbose   bool

	mu      sync.Mutex
	watched map[string]context.CancelFunc
}

// NewWatcher creates a campaign account watcher.
func NewWatcher(ws solana.WSClient, campaigns storage.CampaignStore, verbose bool) *Watcher {
	return &Watcher{
		ws:        ws,
		campaigns: campaigns,
		verbose:   verbose,
		watched:   make(map[string]context.CancelFunc),
	}
}

// Watch subscribes to one campaign account and applies every counter
// change until ctx is done or the subscription channel closes. Watching an
// already watched campaign is a no-op.
func (w *Watcher) Watch(ctx context.Context, campaignAddress string) error {
	w.mu.Lock()
	if _, ok := w.watched[campaignAddress]; ok {
		w.mu.Unlock()
		return nil
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w.watched[campaignAddress] = cancel
	w.mu.Unlock()

	notifications, err := w.ws.SubscribeAccount(watchCtx, campaignAddress)
	if err != nil {
		w.drop(campaignAddress)
		return fmt.Errorf("subscribe to %s: %w", campaignAddress, err)
	}

	go w.consume(watchCtx, campaignAddress, notifications)
	return nil
}

// Unwatch stops following one campaign.
func (w *Watcher) Unwatch(campaignAddress string) {
	w.mu.Lock()
	cancel, ok := w.watched[campaignAddress]
	delete(w.watched, campaignAddress)
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

// Stop cancels every subscription.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for addr, cancel := range w.watched {
		delete(w.watched, addr)
		cancel()
	}
	w.mu.Unlock()
}

func (w *Watcher) consume(ctx context.Context, campaignAddress string, notifications <-chan solana.AccountNotification) {
	defer w.drop(campaignAddress)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				w.log("subscription for %s closed", campaignAddress)
				return
			}
			if err := w.apply(ctx, campaignAddress, n); err != nil {
				log.Printf("[watch] apply update for %s: %v", campaignAddress, err)
			}
		}
	}
}

// apply projects one account notification onto the mirrored counters.
func (w *Watcher) apply(ctx context.Context, campaignAddress string, n solana.AccountNotification) error {
	counters, err := DecodeCounters(n.Data)
	if err != nil {
		return err
	}

	fullyLoaded := counters.ItemsLoaded == counters.ItemsAvailable
	err = w.campaigns.UpdateCounters(ctx, campaignAddress, counters.ItemsLoaded, counters.ItemsMinted, fullyLoaded)
	if err != nil {
		// A campaign not mirrored yet is not an error worth retrying here.
		if errors.Is(err, storage.ErrNotFound) {
			w.log("campaign %s not mirrored, skipping update at slot %d", campaignAddress, n.Slot)
			return nil
		}
		return err
	}

	w.log("campaign %s at slot %d: loaded %d, minted %d",
		campaignAddress, n.Slot, counters.ItemsLoaded, counters.ItemsMinted)
	return nil
}

func (w *Watcher) drop(campaignAddress string) {
	w.mu.Lock()
	if cancel, ok := w.watched[campaignAddress]; ok {
		delete(w.watched, campaignAddress)
		w.mu.Unlock()
		cancel()
		return
	}
	w.mu.Unlock()
}

func (w *Watcher) log(format string, args ...interface{}) {
	if w.verbose {
		log.Printf("[watch] "+format, args...)
	}
}
