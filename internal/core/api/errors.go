package api

import (
	"errors"

	"github.com/swayhq/sway/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFromError maps service errors to gRPC status codes.
// Auth errors are mapped by the auth interceptor.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, types.ErrSchemaNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrCoercionFailed):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
