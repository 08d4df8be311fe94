package grpccache

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"scene2d.dev/catalyst/cache"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return cache.ErrNotFound
	case codes.InvalidArgument:
		return cache.ErrInvalidCID
	case codes.DataLoss:
		return cache.ErrCIDMismatch
	default:
		// Best-effort: preserve known cache errors the server spelled out.
		switch st.Message() {
		case cache.ErrNotFound.Error():
			return cache.ErrNotFound
		case cache.ErrInvalidCID.Error():
			return cache.ErrInvalidCID
		case cache.ErrCIDMismatch.Error():
			return cache.ErrCIDMismatch
		default:
			return err
		}
	}
}
