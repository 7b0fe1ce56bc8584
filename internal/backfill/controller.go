package backfill

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/catalog"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

const maxConcurrentDownloadsHardCap = 40

// Config parameterizes the controller. MaxConcurrentDownloads is clamped to
// [1, 40] per §6's configuration enumeration.
type Config struct {
	MaxConcurrentDownloads int
	UpdateInterval         time.Duration // StartSchedule's forward-fill cadence
	GraceWindow            time.Duration // PreSubscribe's "now + small grace"
	HeartbeatLatency       time.Duration // measured vendor heartbeat, clamped into the gap timeout
	ReapInterval           time.Duration
}

func (c Config) normalized() Config {
	if c.MaxConcurrentDownloads <= 0 || c.MaxConcurrentDownloads > maxConcurrentDownloadsHardCap {
		c.MaxConcurrentDownloads = maxConcurrentDownloadsHardCap
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = time.Minute
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = 2 * time.Second
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 5 * time.Minute
	}
	return c
}

// ScheduleTarget is one (vendor, symbol, resolution, data-type) combination
// StartSchedule keeps current. BackwardFrom, if non-zero, additionally
// walks backward to that timestamp once per schedule tick, filling in
// history below whatever the archive already holds.
type ScheduleTarget struct {
	Vendor       string
	Symbol       basedata.Symbol
	Resolution   basedata.Resolution
	DataType     basedata.BaseDataType
	BackwardFrom time.Time
}

// Controller is the backfill controller (C3): scheduled vendor replay into
// an archive, bounded by a global download permit and deduplicated by a
// task registry keyed on (symbol, resolution, data-type).
type Controller struct {
	cfg     Config
	archive *archive.Store
	vendors map[string]vendoradapter.VendorAdapter
	sem     *semaphore.Weighted
	reg     *registry
	mirror  *catalog.BackfillRegistry // optional; nil disables persisted mirroring
	log     *zap.Logger
}

// New builds a Controller. mirror may be nil.
func New(cfg Config, store *archive.Store, vendors map[string]vendoradapter.VendorAdapter, mirror *catalog.BackfillRegistry, log *zap.Logger) *Controller {
	cfg = cfg.normalized()
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg,
		archive: store,
		vendors: vendors,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentDownloads)),
		reg:     newRegistry(),
		mirror:  mirror,
		log:     log,
	}
}

// StartSchedule runs forever, launching a forward-fill task for every
// target each UpdateInterval (and a backward-fill task where
// BackwardFrom is set), and periodically reaping finished registry entries.
// It returns when ctx is cancelled, having aborted every live task and
// cleared the registry.
func (c *Controller) StartSchedule(ctx context.Context, targets []ScheduleTarget) {
	updateTicker := time.NewTicker(c.cfg.UpdateInterval)
	reapTicker := time.NewTicker(c.cfg.ReapInterval)
	defer updateTicker.Stop()
	defer reapTicker.Stop()

	c.launchAll(ctx, targets)

	for {
		select {
		case <-ctx.Done():
			c.reg.clear()
			return
		case <-updateTicker.C:
			c.launchAll(ctx, targets)
		case <-reapTicker.C:
			c.reg.reapSweep()
		}
	}
}

func (c *Controller) launchAll(ctx context.Context, targets []ScheduleTarget) {
	for _, t := range targets {
		t := t
		go func() {
			from, _, _ := c.archiveBounds(ctx, t)
			if err := c.UpdateTo(ctx, t.Vendor, t.Symbol, t.DataType, t.Resolution, from, time.Now()); err != nil {
				c.log.Warn("backfill: forward fill failed", zap.String("symbol", t.Symbol.Name), zap.Error(err))
			}
		}()
		if !t.BackwardFrom.IsZero() {
			t := t
			go func() {
				_, earliest, ok := c.archiveBounds(ctx, t)
				if !ok {
					earliest = time.Now()
				}
				if err := c.updateBackward(ctx, t.Vendor, t.Symbol, t.DataType, t.Resolution, earliest, t.BackwardFrom); err != nil {
					c.log.Warn("backfill: backward fill failed", zap.String("symbol", t.Symbol.Name), zap.Error(err))
				}
			}()
		}
	}
}

// archiveBounds reports the archive's current (forward-fill start,
// backward-fill start) for target, defaulting the forward start to 24h ago
// when nothing is archived yet.
func (c *Controller) archiveBounds(ctx context.Context, t ScheduleTarget) (forwardFrom, backwardFrom time.Time, hasData bool) {
	key := archive.Key{Vendor: t.Vendor, Market: t.Symbol.Market, Symbol: t.Symbol.Name, Resolution: t.Resolution, DataType: t.DataType}
	latest, ok, err := c.archive.GetLatestTime(ctx, key)
	if err != nil || !ok {
		return time.Now().Add(-24 * time.Hour), time.Time{}, false
	}
	earliest, _, _ := c.archive.GetEarliestTime(ctx, key)
	return latest, earliest, true
}

// PreSubscribe blocks until any in-flight task for (symbol, resolution,
// dataType) completes, then triggers a one-shot forward update to
// "now + GraceWindow" so a strategy subscribing mid-replay sees data caught
// up to (almost) the present before it starts consuming the live stream.
func (c *Controller) PreSubscribe(ctx context.Context, vendor string, sym basedata.Symbol, res basedata.Resolution, dt basedata.BaseDataType) error {
	key := keyFor(sym, res, dt)
	c.reg.mu.Lock()
	existing, live := c.reg.tasks[key]
	c.reg.mu.Unlock()
	if live && !existing.finished {
		select {
		case <-existing.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	from, _, hasData := c.archiveBounds(ctx, ScheduleTarget{Vendor: vendor, Symbol: sym, Resolution: res, DataType: dt})
	if !hasData {
		from = time.Now().Add(-1 * time.Hour)
	}
	to := time.Now().Add(c.cfg.GraceWindow)
	return c.UpdateTo(ctx, vendor, sym, dt, res, from, to)
}

// UpdateTo drives a single contiguous forward download window
// [from, to), per §4.3's per-task algorithm. Concurrent calls for the same
// (symbol, resolution, dataType) are deduplicated: the second caller's
// UpdateTo is a no-op that returns once the first completes.
func (c *Controller) UpdateTo(ctx context.Context, vendor string, sym basedata.Symbol, dt basedata.BaseDataType, res basedata.Resolution, from, to time.Time) error {
	return c.runTask(ctx, vendor, sym, dt, res, from, to, false)
}

func (c *Controller) updateBackward(ctx context.Context, vendor string, sym basedata.Symbol, dt basedata.BaseDataType, res basedata.Resolution, to, from time.Time) error {
	return c.runTask(ctx, vendor, sym, dt, res, from, to, true)
}

func (c *Controller) runTask(ctx context.Context, vendor string, sym basedata.Symbol, dt basedata.BaseDataType, res basedata.Resolution, from, to time.Time, backward bool) error {
	adapter, ok := c.vendors[vendor]
	if !ok {
		return fmt.Errorf("backfill: unknown vendor %q", vendor)
	}

	key := keyFor(sym, res, dt)
	h, ok := c.reg.start(key)
	if !ok {
		select {
		case <-h.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.reg.finish(key, h, err)
		return err
	}
	defer c.sem.Release(1)

	if c.mirror != nil {
		_ = c.mirror.Start(ctx, sym.Name, res.String(), dt.String(), time.Now())
	}

	taskErr := c.drive(ctx, adapter, sym, dt, res, from, to, backward)
	c.reg.finish(key, h, taskErr)

	if c.mirror != nil {
		_ = c.mirror.Finish(ctx, sym.Name, res.String(), dt.String(), time.Now(), taskErr)
	}
	return taskErr
}

// drive implements §4.3's per-task algorithm steps 1-5 once a permit is
// held and the task is registered.
func (c *Controller) drive(ctx context.Context, adapter vendoradapter.VendorAdapter, sym basedata.Symbol, dt basedata.BaseDataType, res basedata.Resolution, from, to time.Time, backward bool) error {
	gapTimeout := heartbeatGapTimeout(c.cfg.HeartbeatLatency)
	size := windowSize(res)
	buf := &pendingBuffer{}

	cursor := from
	if backward {
		cursor = to
	}

	for {
		if ctx.Err() != nil {
			break
		}

		var windowStart, windowEnd time.Time
		if backward {
			windowStart = cursor.Add(-size)
			windowEnd = cursor
			if windowStart.Before(from) {
				windowStart = from
			}
		} else {
			windowStart = cursor
			windowEnd = cursor.Add(size)
			if windowEnd.After(to) {
				windowEnd = to
			}
		}

		req := vendoradapter.HistoricalRequest{
			Symbol: sym, DataType: dt, Resolution: res,
			From: windowStart, To: windowEnd, FromBack: backward, IsBulk: true,
		}
		items, err := drainWindow(ctx, adapter, req, gapTimeout)
		if err != nil && len(items) == 0 {
			return err
		}
		buf.add(items)
		if done := buf.splitCompleteDays(); len(done) > 0 {
			flushWithRetry(ctx, c.archive, done, true, c.log)
		}

		last, hadData := lastTimestamp(items)
		if backward {
			if hadData {
				cursor = last
			} else {
				cursor = windowStart
			}
			// next window would precede the requested `from`: stop.
			if !windowStart.After(from) {
				break
			}
		} else {
			if hadData {
				cursor = last
			} else {
				cursor = windowEnd
			}
			// within 1s of "now": stop.
			if to.Sub(cursor) <= time.Second {
				break
			}
		}
	}

	flushWithRetry(ctx, c.archive, buf.drain(), true, c.log)
	return nil
}
