package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/metrics"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/mail"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 30 * time.Second

	kindApproved = "approved"
)

// Deduper records which notifications were already sent.
type Deduper interface {
	Claim(ctx context.Context, kind, accountID string) (bool, error)
	Forget(ctx context.Context, kind, accountID string) error
}

// Dispatcher delivers approval emails off the request path. Jobs are routed to
// a fixed set of workers by hashing the account id, so notifications for one
// account are handled in order by a single worker.
type Dispatcher struct {
	workers []chan domain.Account
	mailer  ports.Mailer
	dedup   Deduper
	appURL  string
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. dedup may be nil.
func NewDispatcher(numWorkers int, mailer ports.Mailer, dedup Deduper, appURL string, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Account, numWorkers),
		mailer:  mailer,
		dedup:   dedup,
		appURL:  appURL,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Account, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// AccountApproved queues the approval email. It never blocks: when the
// worker's buffer is full the notification is dropped and logged.
func (d *Dispatcher) AccountApproved(_ context.Context, account *domain.Account) {
	idx := d.shardIndex(account.ID)
	ch := d.workers[idx]
	select {
	case ch <- *account:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(ch)))
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("account_id", account.ID).
			Int("worker_id", idx).
			Msg("notification queue full, approval email dropped")
	}
}

// shardIndex maps an account id deterministically to a worker index.
func (d *Dispatcher) shardIndex(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Account) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case account := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliverApproval(ctx, &account, id)
		}
	}
}

func (d *Dispatcher) deliverApproval(ctx context.Context, account *domain.Account, workerID int) {
	if d.dedup != nil {
		claimed, err := d.dedup.Claim(ctx, kindApproved, account.ID)
		if err != nil {
			d.log.Warn().Err(err).Str("account_id", account.ID).Msg("dedup claim failed, sending anyway")
		} else if !claimed {
			metrics.NotificationsTotal.WithLabelValues("duplicate").Inc()
			d.log.Debug().Str("account_id", account.ID).Msg("approval email already sent")
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.mailer.Send(sendCtx, mail.ApprovalMessage(account, d.appURL))
	switch {
	case errors.Is(err, mail.ErrSMTPDisabled):
		metrics.NotificationsTotal.WithLabelValues("disabled").Inc()
		d.log.Debug().Str("account_id", account.ID).Msg("smtp disabled, approval email skipped")
	case err != nil:
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		metrics.NotificationDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		d.log.Warn().Err(err).
			Str("account_id", account.ID).
			Str("email", account.Email).
			Int("worker_id", workerID).
			Msg("approval email failed")
		if d.dedup != nil {
			if fErr := d.dedup.Forget(context.WithoutCancel(ctx), kindApproved, account.ID); fErr != nil {
				d.log.Warn().Err(fErr).Str("account_id", account.ID).Msg("failed to clear dedup key")
			}
		}
	default:
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		metrics.NotificationDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())
		d.log.Info().Str("account_id", account.ID).Str("email", account.Email).Msg("approval email sent")
	}
}
