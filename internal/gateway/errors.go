package gateway

import (
	"context"
	"errors"

	"github.com/signalsfoundry/netstore/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatusError maps store errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNetworkNotFound),
		errors.Is(err, ErrResourceNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidResource),
		errors.Is(err, model.ErrUnknownResourceType):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrNetworkExists),
		errors.Is(err, ErrResourceExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromStatusError turns an RPC failure into a *StoreError for operation op
// on type t. Unavailable and DeadlineExceeded wrap ErrTransport so callers
// can retry them.
func FromStatusError(t model.ResourceType, op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &StoreError{Type: t, Op: op, Code: codes.Unknown, Err: err}
	}
	serr := &StoreError{Type: t, Op: op, Code: st.Code(), Err: errors.New(st.Message())}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		serr.Err = transportError{msg: st.Message()}
	}
	return serr
}

type transportError struct{ msg string }

func (e transportError) Error() string {
	if e.msg == "" {
		return ErrTransport.Error()
	}
	return ErrTransport.Error() + ": " + e.msg
}

func (e transportError) Unwrap() error { return ErrTransport }
