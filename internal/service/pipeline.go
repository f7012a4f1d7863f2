package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anthropics/telegram-product-scraper/internal/biz/domain"
	"github.com/anthropics/telegram-product-scraper/internal/biz/repo"
	"github.com/anthropics/telegram-product-scraper/internal/biz/usecase"

	"golang.org/x/sync/errgroup"
)

// batchPause spaces out consecutive history batch fetches
const batchPause = time.Second

// ChannelSpec names one channel to scrape
type ChannelSpec struct {
	Ref  string
	Name string
}

// Pipeline drives the scrape: it pulls messages from the source, assembles
// products and hands them to the deliverer. History channels are worked
// concurrently; the live stream is consumed by a single loop.
type Pipeline struct {
	source    repo.MessageSource
	assembler *usecase.Assembler
	deliverer *usecase.Deliverer
	products  repo.ProductRepo

	stopDate  time.Time
	batchSize int
	sleep     usecase.SleepFunc

	// Per-channel pairing state, shared between the history and live phases
	states   map[int64]*usecase.ChannelState
	statesMu sync.Mutex
}

// NewPipeline creates a scrape pipeline. stopDate may be zero to scan the
// full history.
func NewPipeline(
	source repo.MessageSource,
	assembler *usecase.Assembler,
	deliverer *usecase.Deliverer,
	products repo.ProductRepo,
	stopDate time.Time,
	batchSize int,
) *Pipeline {
	return &Pipeline{
		source:    source,
		assembler: assembler,
		deliverer: deliverer,
		products:  products,
		stopDate:  stopDate,
		batchSize: batchSize,
		sleep:     usecase.Sleep,
		states:    make(map[int64]*usecase.ChannelState),
	}
}

// RunHistory scans each channel's history from newest to the stop date,
// one worker per channel
func (p *Pipeline) RunHistory(ctx context.Context, channels []ChannelSpec) error {
	resolved, err := p.resolveAll(ctx, channels)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, ch := range resolved {
		ch := ch
		g.Go(func() error {
			return p.scanChannel(gCtx, ch)
		})
	}
	return g.Wait()
}

// RunLive subscribes to the channels and processes posts as they arrive,
// until ctx is cancelled
func (p *Pipeline) RunLive(ctx context.Context, channels []ChannelSpec) error {
	resolved, err := p.resolveAll(ctx, channels)
	if err != nil {
		return err
	}

	byID := make(map[int64]*domain.Channel, len(resolved))
	ids := make([]int64, 0, len(resolved))
	for _, ch := range resolved {
		byID[ch.ID] = ch
		ids = append(ids, ch.ID)
	}

	stream, err := p.source.Subscribe(ctx, ids)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	fmt.Printf("[Pipeline] Monitoring %d channels\n", len(ids))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-stream:
			if !ok {
				return nil
			}
			ch, known := byID[msg.ChannelID]
			if !known {
				continue
			}
			if err := p.processMessage(ctx, p.stateFor(msg.ChannelID), msg, ch); err != nil {
				fmt.Printf("[Pipeline] Failed to process %s: %v\n", msg.UniqueID(), err)
			}
		}
	}
}

// RunHybrid scans history first, then keeps monitoring live. The pairing
// state carries over so a caption arriving live still picks up media
// buffered during the history scan.
func (p *Pipeline) RunHybrid(ctx context.Context, channels []ChannelSpec) error {
	if err := p.RunHistory(ctx, channels); err != nil {
		if !errors.Is(err, repo.ErrHistoryUnsupported) {
			return err
		}
		fmt.Println("[Pipeline] History unavailable on this source, going straight to live")
	}
	return p.RunLive(ctx, channels)
}

// scanChannel walks one channel's history newest-first in batches. Each
// batch is processed oldest-first so media posts are buffered before the
// caption that claims them.
func (p *Pipeline) scanChannel(ctx context.Context, ch *domain.Channel) error {
	state := p.stateFor(ch.ID)
	var offsetID int64
	total := 0

	for {
		batch, err := p.fetchBatch(ctx, ch, offsetID)
		if err != nil {
			if errors.Is(err, repo.ErrHistoryUnsupported) {
				fmt.Printf("[Pipeline] Source has no history access for %s\n", ch.Ref)
				return err
			}
			return fmt.Errorf("fetch history of %s: %w", ch.Ref, err)
		}
		if len(batch) == 0 {
			break
		}

		// batch is descending; cut at the stop date before reordering
		reachedStop := false
		kept := batch[:0]
		for _, msg := range batch {
			if !p.stopDate.IsZero() && msg.Date.Before(p.stopDate) {
				reachedStop = true
				break
			}
			kept = append(kept, msg)
		}

		for i := len(kept) - 1; i >= 0; i-- {
			if err := p.processMessage(ctx, state, kept[i], ch); err != nil {
				fmt.Printf("[Pipeline] Failed to process %s: %v\n", kept[i].UniqueID(), err)
			}
		}
		total += len(kept)

		if reachedStop || len(batch) < p.batchSize {
			break
		}
		offsetID = batch[len(batch)-1].ID

		if err := p.sleep(ctx, batchPause); err != nil {
			return err
		}
	}

	fmt.Printf("[Pipeline] History scan of %s done: %d messages\n", ch.Ref, total)
	return nil
}

// fetchBatch fetches one history window, sleeping through rate limits
func (p *Pipeline) fetchBatch(ctx context.Context, ch *domain.Channel, offsetID int64) ([]domain.Message, error) {
	for {
		batch, err := p.source.FetchHistory(ctx, ch, offsetID, p.batchSize)
		if err == nil {
			return batch, nil
		}
		var rateErr *repo.RateLimitError
		if !errors.As(err, &rateErr) {
			return nil, err
		}
		fmt.Printf("[Pipeline] Rate limited on %s, waiting %s\n", ch.Ref, rateErr.RetryAfter)
		if err := p.sleep(ctx, rateErr.RetryAfter); err != nil {
			return nil, err
		}
	}
}

// processMessage runs one message through assembly and delivery.
// A caption whose product was already stored via AI extraction is not
// re-extracted; the stored record is re-delivered as is.
func (p *Pipeline) processMessage(ctx context.Context, state *usecase.ChannelState, msg domain.Message, ch *domain.Channel) error {
	if msg.HasText() && !state.IsProcessed(msg.UniqueID()) {
		stored, err := p.products.Get(ctx, msg.UniqueID())
		if err != nil {
			return fmt.Errorf("check stored product: %w", err)
		}
		if stored != nil && stored.Method == domain.MethodAI {
			state.Record(msg)
			state.MarkProcessed(msg.UniqueID())
			fmt.Printf("[Pipeline] Reusing stored extraction for %s\n", msg.UniqueID())
			_, err := p.deliverer.Deliver(ctx, stored)
			return err
		}
	}

	product, err := p.assembler.Assemble(ctx, state, msg, ch)
	if err != nil {
		return err
	}
	if product == nil {
		return nil
	}
	_, err = p.deliverer.Deliver(ctx, product)
	return err
}

// resolveAll resolves and joins every channel, skipping the ones that fail
func (p *Pipeline) resolveAll(ctx context.Context, channels []ChannelSpec) ([]*domain.Channel, error) {
	var resolved []*domain.Channel
	for _, spec := range channels {
		ch, err := p.source.ResolveChannel(ctx, spec.Ref)
		if err != nil {
			fmt.Printf("[Pipeline] Skipping %s: %v\n", spec.Ref, err)
			continue
		}
		ch.Name = spec.Name
		if err := p.source.JoinChannel(ctx, ch); err != nil {
			fmt.Printf("[Pipeline] Skipping %s: %v\n", spec.Ref, err)
			continue
		}
		resolved = append(resolved, ch)
	}
	if len(resolved) == 0 {
		return nil, errors.New("no channels could be resolved")
	}
	return resolved, nil
}

func (p *Pipeline) stateFor(channelID int64) *usecase.ChannelState {
	p.statesMu.Lock()
	defer p.statesMu.Unlock()
	state, ok := p.states[channelID]
	if !ok {
		state = usecase.NewChannelState(channelID)
		p.states[channelID] = state
	}
	return state
}
