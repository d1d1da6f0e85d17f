package grpcapi

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, domain.ErrQuoteExpired):
		return status.Error(codes.FailedPrecondition, err.Error())
	}

	switch domain.Code(err) {
	case domain.CodeValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.CodeNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.CodeDuplicate:
		return status.Error(codes.AlreadyExists, err.Error())
	case domain.CodeRateUnavailable, domain.CodeStoreError, domain.CodeDispatchFailed:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
