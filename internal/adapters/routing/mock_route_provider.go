package routing

import (
	"context"
	"fmt"
	"sync"

	"route-deviation-service/internal/domain"
)

// MockCall records one FetchRoute invocation.
type MockCall struct {
	Origin, Destination domain.Coordinate
}

// MockResponse is returned for the call with the same position in the script.
type MockResponse struct {
	Route domain.Route
	Err   error
}

// MockRouteProvider replays scripted responses in order and records every call.
// Once the script is exhausted the last response is repeated.
type MockRouteProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []MockCall
}

func NewMockRouteProvider(responses ...MockResponse) *MockRouteProvider {
	return &MockRouteProvider{responses: responses}
}

func (p *MockRouteProvider) FetchRoute(ctx context.Context, origin, destination domain.Coordinate) (domain.Route, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Origin: origin, Destination: destination})

	if err := ctx.Err(); err != nil {
		return domain.Route{}, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	if len(p.responses) == 0 {
		return domain.Route{}, fmt.Errorf("%w: mock has no scripted response", domain.ErrNoRouteFound)
	}

	i := len(p.calls) - 1
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	r := p.responses[i]

	return r.Route, r.Err
}

// Calls returns a copy of the recorded calls.
func (p *MockRouteProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]MockCall, len(p.calls))
	copy(out, p.calls)
	return out
}
