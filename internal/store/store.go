package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an endpoint id is not registered.
var ErrNotFound = errors.New("endpoint not found")

type Endpoint struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Request is one captured inbound call. Headers, Body, Query and Params hold
// JSON text so the API can emit them as structured values without reparsing.
type Request struct {
	ID         int64     `json:"id"`
	EndpointID string    `json:"endpoint_id"`
	Method     string    `json:"method"`
	Headers    string    `json:"headers"`
	Body       string    `json:"body"`
	Query      string    `json:"query"`
	Params     string    `json:"params"`
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
}

type Store interface {
	// EnsureEndpoint returns the endpoint for id when it is already
	// registered (reused=true). An empty or unknown id registers a freshly
	// generated endpoint instead.
	EnsureEndpoint(ctx context.Context, id string) (*Endpoint, bool, error)
	EndpointExists(ctx context.Context, id string) (bool, error)

	AppendRequest(ctx context.Context, req *Request) error
	// ListRequests returns records ordered by timestamp, ties broken by
	// insertion order. ClearRequests reports how many records it removed.
	// Both return ErrNotFound for an unregistered endpoint.
	ListRequests(ctx context.Context, endpointID string) ([]*Request, error)
	ClearRequests(ctx context.Context, endpointID string) (int64, error)

	// SweepIdle deletes endpoints created before cutoff that have no request
	// at or after cutoff, records first. Returns the deleted ids.
	SweepIdle(ctx context.Context, cutoff time.Time) ([]string, error)
}
