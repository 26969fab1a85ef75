package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	"github.com/allisson/fieldcrypt/internal/metrics"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

const (
	defaultBatchSize = 100
	defaultMaxSweeps = 3
)

// Options tunes the Orchestrator.
type Options struct {
	// BatchSize is the page size used to list stale documents.
	BatchSize int
	// RateLimit caps resealed documents per second. Zero disables the limit.
	RateLimit float64
	// MaxSweeps bounds how many passes are made over a collection. A later pass picks up
	// documents written with a secret fetched just before the rotation.
	MaxSweeps int
	// Lease, when set, guards rotations across processes.
	Lease Lease
	// LeaseTTL is how long a lease is held before another process may take it over. The
	// lease is extended between batches once a third of it has elapsed.
	LeaseTTL time.Duration
	// Holder identifies this process in the lease table.
	Holder string
}

// Orchestrator rotates purpose secrets and reseals every stale document.
type Orchestrator struct {
	registry    *keysService.Registry
	collections []Collection
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger

	batchSize int
	maxSweeps int
	limiter   *rate.Limiter
	lease     Lease
	leaseTTL  time.Duration
	holder    string

	mu       sync.Mutex
	statuses map[keysDomain.Purpose]*rotationDomain.Status
	wg       sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator over the registered purposes and collections.
func NewOrchestrator(
	registry *keysService.Registry,
	collections []Collection,
	opts Options,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxSweeps <= 0 {
		opts.MaxSweeps = defaultMaxSweeps
	}
	if opts.Holder == "" {
		opts.Holder = uuid.Must(uuid.NewV7()).String()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	statuses := make(map[keysDomain.Purpose]*rotationDomain.Status)
	for _, p := range registry.Purposes() {
		statuses[p] = &rotationDomain.Status{Purpose: p}
	}

	return &Orchestrator{
		registry:    registry,
		collections: collections,
		metrics:     m,
		logger:      logger,
		batchSize:   opts.BatchSize,
		maxSweeps:   opts.MaxSweeps,
		limiter:     limiter,
		lease:       opts.Lease,
		leaseTTL:    opts.LeaseTTL,
		holder:      opts.Holder,
		statuses:    statuses,
	}
}

// Trigger starts a background rotation of purpose.
func (o *Orchestrator) Trigger(ctx context.Context, purpose keysDomain.Purpose) (*rotationDomain.Status, error) {
	secrets, err := o.registry.Get(purpose)
	if err != nil {
		return nil, err
	}

	status, started, err := o.begin(ctx, purpose)
	if err != nil || !started {
		return status, err
	}

	runCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.rotate(runCtx, secrets)
	}()

	return status, nil
}

// TriggerAll starts a background rotation of every registered purpose. A purpose that
// cannot be started does not prevent the others; the statuses of the started ones are
// returned along with the joined errors.
func (o *Orchestrator) TriggerAll(ctx context.Context) ([]*rotationDomain.Status, error) {
	purposes := o.registry.Purposes()
	statuses := make([]*rotationDomain.Status, 0, len(purposes))
	var errs []error
	for _, p := range purposes {
		status, err := o.Trigger(ctx, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to trigger %s rotation: %w", p, err))
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses, errors.Join(errs...)
}

// Run rotates purpose synchronously. A rotation already running is not joined; its
// status is returned.
func (o *Orchestrator) Run(ctx context.Context, purpose keysDomain.Purpose) (*rotationDomain.Status, error) {
	secrets, err := o.registry.Get(purpose)
	if err != nil {
		return nil, err
	}

	status, started, err := o.begin(ctx, purpose)
	if err != nil || !started {
		return status, err
	}

	return o.rotate(ctx, secrets), nil
}

// Status returns a snapshot of every purpose in rotation order.
func (o *Orchestrator) Status(_ context.Context) rotationDomain.Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	statuses := make([]*rotationDomain.Status, 0, len(o.statuses))
	for _, p := range o.registry.Purposes() {
		statuses = append(statuses, o.statuses[p].Clone())
	}
	return rotationDomain.Summarize(statuses)
}

// Wait blocks until background rotations returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// begin moves purpose to Rotating. It reports started=false with the in-flight status
// when a rotation of purpose is already running in this process. The report of the
// previous rotation is kept until the lease is held.
func (o *Orchestrator) begin(
	ctx context.Context,
	purpose keysDomain.Purpose,
) (*rotationDomain.Status, bool, error) {
	o.mu.Lock()
	status := o.statuses[purpose]
	if status.IsOngoing {
		snapshot := status.Clone()
		o.mu.Unlock()
		return snapshot, false, nil
	}
	status.IsOngoing = true
	o.mu.Unlock()

	if o.lease != nil {
		acquired, err := o.lease.Acquire(ctx, purpose, o.holder, o.leaseTTL)
		if err == nil && !acquired {
			err = rotationDomain.ErrRotationInProgress
		}
		if err != nil {
			o.mu.Lock()
			status.IsOngoing = false
			o.mu.Unlock()
			return nil, false, err
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now().UTC()
	status.StartedAt = &now
	status.Processed = 0
	status.Failed = 0
	status.EligibleForRetirement = nil
	status.PendingRetirement = nil
	status.Error = ""
	return status.Clone(), true, nil
}

// rotate performs one rotation of a purpose and returns its final status.
func (o *Orchestrator) rotate(ctx context.Context, secrets keysService.SecretService) *rotationDomain.Status {
	purpose := secrets.Purpose()
	logger := o.logger.With(slog.String("purpose", string(purpose)))

	if o.lease != nil {
		defer func() {
			if err := o.lease.Release(ctx, purpose, o.holder); err != nil {
				logger.Error("failed to release rotation lease", slog.Any("error", err))
			}
		}()
	}

	current, err := secrets.Rotate(ctx)
	if err != nil {
		logger.Error("failed to rotate secret", slog.Any("error", err))
		return o.finish(purpose, err)
	}

	o.update(purpose, func(s *rotationDomain.Status) {
		s.CurrentSecretID = current.ID
	})
	logger.Info("rotation started", slog.String("secret_id", current.ID.String()))

	keeper := &leaseKeeper{
		lease:   o.lease,
		purpose: purpose,
		holder:  o.holder,
		ttl:     o.leaseTTL,
		renewed: time.Now(),
	}

	clean := true
	for _, c := range o.collections {
		if err := o.migrate(ctx, c, purpose, current.ID, keeper); err != nil {
			logger.Error("failed to migrate collection",
				slog.String("collection", c.Name()),
				slog.Any("error", err),
			)
			if errors.Is(err, rotationDomain.ErrLeaseLost) {
				return o.finish(purpose, err)
			}
			clean = false
		}
	}

	if clean && o.snapshot(purpose).Failed == 0 {
		retired, pending, err := o.retire(ctx, secrets, current.ID)
		if err != nil {
			logger.Error("failed to retire secrets", slog.Any("error", err))
		}
		o.update(purpose, func(s *rotationDomain.Status) {
			s.EligibleForRetirement = retired
			s.PendingRetirement = pending
		})
	}

	status := o.finish(purpose, nil)
	logger.Info("rotation finished",
		slog.Int64("processed", status.Processed),
		slog.Int64("failed", status.Failed),
		slog.Int("retired", len(status.EligibleForRetirement)),
		slog.Int("pending_retirement", len(status.PendingRetirement)),
	)
	return status
}

// migrate reseals the stale documents of one collection. It sweeps the collection
// again while a pass still moved documents, skipping the ones that already failed.
func (o *Orchestrator) migrate(
	ctx context.Context,
	c Collection,
	purpose keysDomain.Purpose,
	currentID uuid.UUID,
	keeper *leaseKeeper,
) error {
	failed := make(map[uuid.UUID]struct{})

	for sweep := 0; sweep < o.maxSweeps; sweep++ {
		resealed := 0
		afterID := uuid.Nil

		for {
			if err := keeper.extend(ctx); err != nil {
				return err
			}

			ids, err := c.ListStale(ctx, purpose, currentID, afterID, o.batchSize)
			if err != nil {
				return fmt.Errorf("failed to list stale documents: %w", err)
			}
			if len(ids) == 0 {
				break
			}

			var processed, failures int64
			for _, id := range ids {
				if _, ok := failed[id]; ok {
					continue
				}
				if err := o.limiter.Wait(ctx); err != nil {
					return err
				}

				if err := c.Reseal(ctx, id); err != nil {
					o.logger.Warn("failed to reseal document",
						slog.String("collection", c.Name()),
						slog.String("purpose", string(purpose)),
						slog.String("document_id", id.String()),
						slog.Any("error", err),
					)
					failed[id] = struct{}{}
					failures++
					continue
				}
				processed++
			}

			resealed += int(processed)
			o.metrics.RecordDocuments(ctx, c.Name(), string(purpose), "success", processed)
			o.metrics.RecordDocuments(ctx, c.Name(), string(purpose), "error", failures)
			o.update(purpose, func(s *rotationDomain.Status) {
				s.Processed += processed
				s.Failed += failures
			})

			afterID = ids[len(ids)-1]
			if len(ids) < o.batchSize {
				break
			}
		}

		if resealed == 0 {
			return nil
		}
	}
	return nil
}

// retire marks every non-current secret that no collection references anymore. Secrets
// whose successor is still within the retire grace are reported as pending.
func (o *Orchestrator) retire(
	ctx context.Context,
	secrets keysService.SecretService,
	currentID uuid.UUID,
) (retired, pending []uuid.UUID, err error) {
	active, err := secrets.LookupSecrets(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, secret := range active {
		if secret.ID == currentID {
			continue
		}

		var refs int64
		for _, c := range o.collections {
			n, err := c.CountReferences(ctx, secrets.Purpose(), secret.ID)
			if err != nil {
				return retired, pending, fmt.Errorf("failed to count references in %s: %w", c.Name(), err)
			}
			refs += n
		}
		if refs > 0 {
			continue
		}

		if err := secrets.Retire(ctx, secret.ID); err != nil {
			if errors.Is(err, keysDomain.ErrRetirementPending) {
				pending = append(pending, secret.ID)
				continue
			}
			return retired, pending, err
		}
		retired = append(retired, secret.ID)
	}
	return retired, pending, nil
}

// leaseKeeper extends the rotation lease of one purpose while documents are resealed.
type leaseKeeper struct {
	lease   Lease
	purpose keysDomain.Purpose
	holder  string
	ttl     time.Duration
	renewed time.Time
}

func (k *leaseKeeper) extend(ctx context.Context) error {
	if k.lease == nil || time.Since(k.renewed) < k.ttl/3 {
		return nil
	}

	acquired, err := k.lease.Acquire(ctx, k.purpose, k.holder, k.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", rotationDomain.ErrLeaseLost, err)
	}
	if !acquired {
		return rotationDomain.ErrLeaseLost
	}
	k.renewed = time.Now()
	return nil
}

func (o *Orchestrator) update(purpose keysDomain.Purpose, fn func(s *rotationDomain.Status)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fn(o.statuses[purpose])
}

func (o *Orchestrator) snapshot(purpose keysDomain.Purpose) *rotationDomain.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.statuses[purpose].Clone()
}

// finish moves purpose back to Idle.
func (o *Orchestrator) finish(purpose keysDomain.Purpose, err error) *rotationDomain.Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := o.statuses[purpose]
	status.IsOngoing = false
	if err != nil {
		status.Error = err.Error()
	} else {
		now := time.Now().UTC()
		status.LastRotation = &now
	}
	return status.Clone()
}
