package gate

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/gate-controller/internal/domain/gate"
)

const (
	// StartedField reports whether a command pulsed the relay.
	StartedField = "started"
	// ClearedField reports whether an alert was acknowledged.
	ClearedField = "cleared"
)

// Service abstracts the controller operations the transport depends on.
type Service interface {
	Open(ctx context.Context) (domain.Snapshot, bool, error)
	Close(ctx context.Context) (domain.Snapshot, bool, error)
	Status(ctx context.Context) domain.Snapshot
	ClearAlert(ctx context.Context) (domain.Snapshot, bool)
}

var _ GateServiceServer = (*Server)(nil)

// Server implements GateService over a Service.
type Server struct {
	// service provides the gate operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Open pulses the relay unless the barrier already reads open.
func (s *Server) Open(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, started, err := s.service.Open(ctx)
	if err != nil {
		return nil, commandError(err)
	}

	return toProtoStatus(snapshot, StartedField, started)
}

// Close pulses the relay unless the barrier already reads closed.
func (s *Server) Close(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, started, err := s.service.Close(ctx)
	if err != nil {
		return nil, commandError(err)
	}

	return toProtoStatus(snapshot, StartedField, started)
}

// GetStatus returns the current status document.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot := s.service.Status(ctx)

	return toProtoStatus(snapshot, "", false)
}

// ClearAlert acknowledges the alert of the in-flight operation.
func (s *Server) ClearAlert(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snapshot, cleared := s.service.ClearAlert(ctx)

	return toProtoStatus(snapshot, ClearedField, cleared)
}

// commandError maps controller errors to gRPC status codes.
func commandError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "unable to execute command")
	}
}

// toProtoStatus converts a snapshot into the status document, with an optional
// extra boolean field.
func toProtoStatus(snapshot domain.Snapshot, extraKey string, extra bool) (*structpb.Struct, error) {
	fields := snapshot.Fields()
	if extraKey != "" {
		fields[extraKey] = extra
	}

	result, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return result, nil
}
