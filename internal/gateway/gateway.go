// Package gateway defines the remote store contract the client layer talks
// to, the error model shared by every transport, and the implementations:
// an in-process MemoryStore and a gRPC client/server pair.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalsfoundry/netstore/model"
	"google.golang.org/grpc/codes"
)

var (
	// ErrTransport marks a retryable network-level failure.
	ErrTransport = errors.New("transport failure")
	// ErrStore matches every *StoreError.
	ErrStore = errors.New("store error")

	// ErrNetworkNotFound indicates the network id is unknown to the store.
	ErrNetworkNotFound = errors.New("network not found")
	// ErrNetworkExists indicates a network with the same id already exists.
	ErrNetworkExists = errors.New("network already exists")
	// ErrResourceNotFound indicates an update targeted a missing resource.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrResourceExists indicates a create collided with an existing id.
	ErrResourceExists = errors.New("resource already exists")
	// ErrInvalidRequest indicates a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)

// NetworkInfo identifies a network known to the store.
type NetworkInfo struct {
	ID   string
	Name string
}

// Gateway is the remote store as seen by the client layer. Every method is
// per network and per resource type. A resource that does not exist is
// reported as found=false with a nil error.
type Gateway interface {
	ListNetworks(ctx context.Context) ([]NetworkInfo, error)
	CreateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error
	GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error)
	GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error)
	GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error)
	UpdateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error
	DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error
	DeleteNetwork(ctx context.Context, networkID string) error
}

// StoreError is a fatal failure reported by (or while reaching) the store.
// It carries the resource type, the operation and the status code.
type StoreError struct {
	Type model.ResourceType
	Op   string
	Code codes.Code
	Err  error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store error: %s %s: status %s", e.Op, e.Type, e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// IsTransport reports whether err is a retryable transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
