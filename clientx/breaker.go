package clientx

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/log"
)

// BreakerSettings configures a per-service circuit breaker.
type BreakerSettings struct {
	Threshold uint32        // consecutive failures that open the breaker
	Window    time.Duration // closed-state counting window
	Cooldown  time.Duration // open duration before a half-open trial call
}

// StateListener observes breaker transitions. It runs under the breaker's
// lock and must not call back into the breaker.
type StateListener func(service string, from, to gobreaker.State)

// BreakerRegistry holds one circuit breaker per service name.
// Settings are fixed by the first caller to request a name.
// No gobreaker method is called while mu is held: gobreaker fires
// OnStateChange from inside State and Execute.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker

	lmu       sync.RWMutex
	listeners map[int]StateListener
	nextID    int
}

// DefaultBreakers is the process-wide registry used unless a client is given another.
var DefaultBreakers = NewBreakerRegistry()

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{
		breakers:  make(map[string]*gobreaker.CircuitBreaker),
		listeners: make(map[int]StateListener),
	}
}

// Get returns the breaker for service, creating it with s on first use.
func (r *BreakerRegistry) Get(service string, s BreakerSettings) *gobreaker.CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[service]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[service]; ok {
		return cb
	}

	threshold := s.Threshold
	if threshold == 0 {
		threshold = 1
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Interval:    s.Window,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: r.notify,
		IsSuccessful: func(err error) bool {
			return !IsBreakerFailure(err)
		},
	})
	r.breakers[service] = cb
	return cb
}

// State returns the current state of service's breaker; closed when unknown.
func (r *BreakerRegistry) State(service string) gobreaker.State {
	r.mu.RLock()
	cb, ok := r.breakers[service]
	r.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// Reset drops service's breaker so the next Get starts closed.
func (r *BreakerRegistry) Reset(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, service)
}

// Subscribe registers l for state transitions of every breaker in the registry.
func (r *BreakerRegistry) Subscribe(l StateListener) (unsubscribe func()) {
	r.lmu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	r.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.lmu.Lock()
			delete(r.listeners, id)
			r.lmu.Unlock()
		})
	}
}

func (r *BreakerRegistry) notify(service string, from, to gobreaker.State) {
	r.lmu.RLock()
	listeners := make([]StateListener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.lmu.RUnlock()

	for _, l := range listeners {
		l(service, from, to)
	}
}

// IsBreakerFailure reports whether err counts against the upstream's health:
// transport failures other than caller cancellation, TLS failures and 5xx statuses.
func IsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}

	var tlsErr *TLSError
	if stderrors.As(err, &tlsErr) {
		return true
	}
	var transportErr *TransportError
	if stderrors.As(err, &transportErr) {
		return !transportErr.Canceled
	}
	var statusErr *UpstreamStatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.ServerError()
	}
	return false
}

// BreakerStage short-circuits calls while the service's breaker is open.
// The breaker is looked up per call so that Reset takes effect immediately.
// Short-circuited calls never reach the inner logger stage, so they are logged
// here; logger may be nil.
func BreakerStage(registry *BreakerRegistry, service string, s BreakerSettings, logger log.Logger) Stage {
	if logger == nil {
		logger = log.Nop()
	}
	registry.Get(service, s)
	return StageFunc{
		StageName: "breaker",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				out, err := registry.Get(service, s).Execute(func() (interface{}, error) {
					return next(ctx, call)
				})
				if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
					logger.Warn("upstream call short-circuited",
						log.Str("service", service),
						log.Str("operation", call.Request.Operation),
						log.Str("method", call.Method),
						log.Str("path", call.Request.Path),
						log.Str("request_id", call.RequestID),
						log.Str("code", string(errors.CodeCircuitOpen)),
					)
					return nil, &CircuitOpenError{Service: service, Err: err}
				}
				resp, _ := out.(*Response)
				if err != nil {
					return nil, err
				}
				return resp, nil
			}
		},
	}
}
