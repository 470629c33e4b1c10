package summary

import (
	"context"
	"errors"
	"sync"

	"yourloops-dashboard/internal/dataapi"
	"yourloops-dashboard/internal/domain"

	"go.uber.org/zap"
)

var (
	// ErrFetchCancelled resolves waiters whose entry was removed before its fetch started.
	ErrFetchCancelled = errors.New("summary fetch cancelled")
	// ErrInvalidUser is returned for summaries requested on non-patient accounts.
	ErrInvalidUser = errors.New("invalid-user")
	ErrQueueClosed = errors.New("summary queue closed")
)

// SummaryFetcher is implemented by Fetcher.
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, s dataapi.Session, patient domain.User) (*domain.MedicalData, error)
}

type result struct {
	md  *domain.MedicalData
	err error
}

type waiter struct {
	ch chan result
}

type pendingFetch struct {
	patient    domain.User
	session    dataapi.Session
	inProgress bool
	waiters    []*waiter
}

// Queue runs summary fetches one at a time, in request order. Requests for
// a patient already queued share the same fetch.
type Queue struct {
	fetcher SummaryFetcher
	cache   *Cache
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingFetch
	order   []string
	closed  bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewQueue starts the worker goroutine. Call Close to stop it.
func NewQueue(fetcher SummaryFetcher, cache *Cache, logger *zap.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		pending: make(map[string]*pendingFetch),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Fetch blocks until the patient's summary is available. A nil result with
// a nil error means the patient has no data. ErrFetchCancelled is returned
// when ctx ends or Remove is called before the fetch starts.
func (q *Queue) Fetch(ctx context.Context, s dataapi.Session, patient domain.User) (*domain.MedicalData, error) {
	if patient.Role != domain.RolePatient {
		return nil, ErrInvalidUser
	}
	if q.cache != nil {
		md, err := q.cache.Get(ctx, patient.ID)
		if err == nil {
			return md, nil
		}
		if !IsMiss(err) {
			q.logger.Warn("Summary cache read failed", zap.String("patient_id", patient.ID), zap.Error(err))
		}
	}

	w := &waiter{ch: make(chan result, 1)}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	if pf, ok := q.pending[patient.ID]; ok {
		pf.waiters = append(pf.waiters, w)
	} else {
		q.pending[patient.ID] = &pendingFetch{patient: patient, session: s, waiters: []*waiter{w}}
		q.order = append(q.order, patient.ID)
	}
	q.mu.Unlock()
	q.signal()

	select {
	case r := <-w.ch:
		return r.md, r.err
	case <-ctx.Done():
		q.dropWaiter(patient.ID, w)
		select {
		case r := <-w.ch:
			return r.md, r.err
		default:
		}
		return nil, ErrFetchCancelled
	}
}

// Remove cancels a queued fetch. A fetch already in progress is left to
// complete. Reports whether an entry was removed.
func (q *Queue) Remove(patientID string) bool {
	q.mu.Lock()
	pf, ok := q.pending[patientID]
	if !ok || pf.inProgress {
		q.mu.Unlock()
		return false
	}
	q.deleteLocked(patientID)
	q.mu.Unlock()

	resolve(pf.waiters, result{err: ErrFetchCancelled})
	q.logger.Debug("Summary fetch cancelled", zap.String("patient_id", patientID), zap.Int("waiters", len(pf.waiters)))
	return true
}

// Pending reports the number of queued or running fetches.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the worker. Queued entries resolve with ErrFetchCancelled;
// an in-flight fetch sees its context cancelled.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	var cancelled []*waiter
	for id, pf := range q.pending {
		if pf.inProgress {
			continue
		}
		cancelled = append(cancelled, pf.waiters...)
		q.deleteLocked(id)
	}
	q.mu.Unlock()

	resolve(cancelled, result{err: ErrFetchCancelled})
	q.cancel()
	<-q.done
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-q.wake:
		}
		for q.next() {
		}
	}
}

// next runs the oldest pending fetch. Returns false when the queue is empty.
func (q *Queue) next() bool {
	q.mu.Lock()
	if len(q.order) == 0 || q.ctx.Err() != nil {
		q.mu.Unlock()
		return false
	}
	id := q.order[0]
	pf := q.pending[id]
	pf.inProgress = true
	q.mu.Unlock()

	md, err := q.fetcher.FetchSummary(q.ctx, pf.session, pf.patient)

	q.mu.Lock()
	q.deleteLocked(id)
	waiters := pf.waiters
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("Summary fetch failed", zap.String("patient_id", id), zap.Error(err))
	} else if md != nil && q.cache != nil {
		if cerr := q.cache.Put(q.ctx, id, md); cerr != nil {
			q.logger.Warn("Summary cache write failed", zap.String("patient_id", id), zap.Error(cerr))
		}
	}
	resolve(waiters, result{md: md, err: err})
	return true
}

func (q *Queue) dropWaiter(patientID string, w *waiter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pf, ok := q.pending[patientID]
	if !ok {
		return
	}
	for i, x := range pf.waiters {
		if x == w {
			pf.waiters = append(pf.waiters[:i], pf.waiters[i+1:]...)
			break
		}
	}
	if len(pf.waiters) == 0 && !pf.inProgress {
		q.deleteLocked(patientID)
	}
}

func (q *Queue) deleteLocked(patientID string) {
	delete(q.pending, patientID)
	for i, id := range q.order {
		if id == patientID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

func resolve(waiters []*waiter, r result) {
	for _, w := range waiters {
		select {
		case w.ch <- r:
		default:
		}
	}
}
