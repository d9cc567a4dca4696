// Package session opens one network of the store and exposes it as live
// objects. A Session owns the network's object index and drives the
// topology engine over the equipment the client reads.
//
// A Session is not safe for concurrent use. Callers serialize access.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

var (
	// ErrIllegalState is re-exported so callers can depend on session.*
	// alone.
	ErrIllegalState = client.ErrIllegalState
	// ErrNotFound indicates a requested object is absent from the network.
	ErrNotFound = errors.New("object not found")
	// ErrClosed indicates the session has been closed or deleted.
	ErrClosed = fmt.Errorf("%w: session closed", ErrIllegalState)
)

// Session is an open network.
type Session struct {
	id        uuid.UUID
	networkID string
	client    client.NetworkStoreClient
	index     *Index
	log       logging.Logger
	closed    bool
}

// Option customises Session construction.
type Option func(*Session)

// WithLogger attaches a structured logger. The session id and network id
// are added to every entry.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func newSession(c client.NetworkStoreClient, networkID string, opts []Option) *Session {
	s := &Session{
		id:        uuid.New(),
		networkID: networkID,
		client:    c,
		log:       logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(
		logging.String("session_id", s.id.String()),
		logging.String("network_id", networkID),
	)
	s.index = newIndex(networkID, c)
	return s
}

// Open opens an existing network. An id the store does not know yields
// ErrIllegalState.
func Open(ctx context.Context, c client.NetworkStoreClient, networkID string, opts ...Option) (*Session, error) {
	if c == nil {
		return nil, errors.New("session: nil client")
	}
	_, found, err := c.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: network %q not found", ErrIllegalState, networkID)
	}
	s := newSession(c, networkID, opts)
	s.log.Info(ctx, "session opened")
	return s, nil
}

// Create buffers a new network and opens it. Nothing reaches the store
// before Flush.
func Create(ctx context.Context, c client.NetworkStoreClient, network *model.Resource, opts ...Option) (*Session, error) {
	if c == nil {
		return nil, errors.New("session: nil client")
	}
	if err := c.CreateNetwork(ctx, network); err != nil {
		return nil, err
	}
	s := newSession(c, network.ID, opts)
	s.log.Info(ctx, "session created network")
	return s, nil
}

// ID is the session's unique id.
func (s *Session) ID() uuid.UUID { return s.id }

// NetworkID is the id of the open network.
func (s *Session) NetworkID() string { return s.networkID }

// Network returns the network record.
func (s *Session) Network(ctx context.Context) (*model.Resource, error) {
	if s.closed {
		return nil, ErrClosed
	}
	r, found, err := s.client.GetNetwork(ctx, s.networkID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: network %q vanished", ErrIllegalState, s.networkID)
	}
	return r, nil
}

// Index returns the session's object index.
func (s *Session) Index() *Index { return s.index }

// Flush sends every buffered write of the client to the store.
func (s *Session) Flush(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.client.Flush(ctx); err != nil {
		s.log.Error(ctx, "session flush failed", logging.Err(err))
		return err
	}
	return nil
}

// Close drops the live objects. Unflushed writes stay in the client.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.index.invalidate()
	s.log.Debug(context.Background(), "session closed")
}

// Delete removes the network from the store and closes the session.
func (s *Session) Delete(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.client.DeleteNetwork(ctx, s.networkID); err != nil {
		return err
	}
	if err := s.client.Flush(ctx); err != nil {
		return err
	}
	s.log.Info(ctx, "network deleted")
	s.Close()
	return nil
}
