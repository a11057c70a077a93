package clientx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.eggybyte.com/evss/testingx"
)

func TestIsBreakerFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"tls", &TLSError{Service: "S", Err: errors.New("x509: bad")}, true},
		{"transport", &TransportError{Service: "S", Err: errors.New("connection reset")}, true},
		{"timeout", &TransportError{Service: "S", Timeout: true, Err: context.DeadlineExceeded}, true},
		{"canceled", &TransportError{Service: "S", Canceled: true, Err: context.Canceled}, false},
		{"server error", &UpstreamStatusError{Service: "S", Status: 503}, true},
		{"client error", &UpstreamStatusError{Service: "S", Status: 404}, false},
		{"malformed", &MalformedResponseError{Service: "S", Status: 200}, false},
		{"wrapped", fmt.Errorf("call: %w", &TLSError{Service: "S", Err: &url.Error{Op: "Get", Err: errors.New("tls: bad")}}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBreakerFailure(tt.err))
		})
	}
}

func TestBreakerRegistry_GetReturnsSameBreaker(t *testing.T) {
	r := NewBreakerRegistry()
	a := r.Get("MHVCF", BreakerSettings{Threshold: 2})
	b := r.Get("MHVCF", BreakerSettings{Threshold: 9})
	c := r.Get("OTHER", BreakerSettings{Threshold: 2})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, gobreaker.StateClosed, r.State("MHVCF"))
	assert.Equal(t, gobreaker.StateClosed, r.State("UNKNOWN"))
}

func TestBreakerStage_OpensAndResets(t *testing.T) {
	r := NewBreakerRegistry()
	var calls int
	failing := func(ctx context.Context, call *Call) (*Response, error) {
		calls++
		return nil, &TransportError{Service: call.Service, Err: errors.New("connection refused")}
	}
	logger := testingx.NewMockLogger(t)
	p := NewPipeline(failing, BreakerStage(r, "S", BreakerSettings{Threshold: 2, Window: time.Minute, Cooldown: time.Hour}, logger))
	call := &Call{Request: &Request{Operation: "op"}, Service: "S"}

	for i := 0; i < 2; i++ {
		_, err := p.Handle(context.Background(), call)
		assert.True(t, IsBreakerFailure(err))
	}
	_, err := p.Handle(context.Background(), call)
	var openErr *CircuitOpenError
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, "S", openErr.Service)
	assert.Equal(t, 2, calls)
	entry, ok := logger.Find("WARN", "upstream call short-circuited")
	require.True(t, ok)
	code, _ := entry.Field("code")
	assert.Equal(t, "CIRCUIT_OPEN", code)

	r.Reset("S")
	assert.Equal(t, gobreaker.StateClosed, r.State("S"))
	_, err = p.Handle(context.Background(), call)
	assert.False(t, errors.As(err, &openErr))
	assert.Equal(t, 3, calls)
}

func TestBreakerRegistry_Unsubscribe(t *testing.T) {
	r := NewBreakerRegistry()
	var seen int
	unsubscribe := r.Subscribe(func(service string, from, to gobreaker.State) { seen++ })

	p := NewPipeline(func(ctx context.Context, call *Call) (*Response, error) {
		return nil, &UpstreamStatusError{Service: "S", Status: 500}
	}, BreakerStage(r, "S", BreakerSettings{Threshold: 1, Cooldown: time.Hour}, nil))
	call := &Call{Request: &Request{Operation: "op"}, Service: "S"}

	_, _ = p.Handle(context.Background(), call)
	assert.Equal(t, 1, seen)

	unsubscribe()
	r.Reset("S")
	_, _ = p.Handle(context.Background(), call)
	assert.Equal(t, 1, seen)
}

func TestBreakerRegistry_StateWhileSubscribing(t *testing.T) {
	r := NewBreakerRegistry()
	p := NewPipeline(func(ctx context.Context, call *Call) (*Response, error) {
		return nil, &TransportError{Service: "S", Err: errors.New("connection refused")}
	}, BreakerStage(r, "S", BreakerSettings{Threshold: 1, Cooldown: time.Millisecond}, nil))

	stop := make(chan struct{})
	churned := make(chan struct{})
	go func() {
		defer close(churned)
		for {
			select {
			case <-stop:
				return
			default:
				unsubscribe := r.Subscribe(func(string, gobreaker.State, gobreaker.State) {})
				unsubscribe()
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_, _ = p.Handle(context.Background(), &Call{Request: &Request{Operation: "op"}, Service: "S"})
			time.Sleep(2 * time.Millisecond)
			_ = r.State("S") // moves open to half-open, firing listeners
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("breaker registry deadlocked")
	}
	close(stop)
	<-churned
}
