package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/taskseal/internal/common"
	"github.com/dmitrijs2005/taskseal/internal/rpc"
	"github.com/dmitrijs2005/taskseal/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC status codes. Unexpected errors are
// logged and reported without detail.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, rpc.ErrBadMessage), errors.Is(err, services.ErrInvalidRecord):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		s.logger.Error(ctx, op+" failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func ok() *structpb.Struct {
	return rpc.EncodeStatus(rpc.StatusOK)
}

func (s *GRPCServer) Ping(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return ok(), nil
}

func (s *GRPCServer) ListRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.records.List(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "list records", err)
	}
	return rpc.EncodeTaskList(list), nil
}

func (s *GRPCServer) GetRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := rpc.DecodeID(in)
	if err != nil {
		return nil, s.toStatus(ctx, "get record", err)
	}

	t, err := s.records.Get(ctx, userID, id)
	if err != nil {
		return nil, s.toStatus(ctx, "get record", err)
	}
	return rpc.EncodeTask(*t), nil
}

func (s *GRPCServer) CreateRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	t, err := rpc.DecodeTask(in)
	if err != nil {
		return nil, s.toStatus(ctx, "create record", err)
	}

	created, err := s.records.Create(ctx, userID, t)
	if err != nil {
		return nil, s.toStatus(ctx, "create record", err)
	}
	return rpc.EncodeTask(*created), nil
}

func (s *GRPCServer) PatchRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, patch, err := rpc.DecodePatch(in)
	if err != nil {
		return nil, s.toStatus(ctx, "patch record", err)
	}

	if err := s.records.Patch(ctx, userID, id, patch); err != nil {
		return nil, s.toStatus(ctx, "patch record", err)
	}
	return ok(), nil
}

func (s *GRPCServer) SetDone(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, done, err := rpc.DecodeSetDone(in)
	if err != nil {
		return nil, s.toStatus(ctx, "set done", err)
	}

	if err := s.records.SetDone(ctx, userID, id, done); err != nil {
		return nil, s.toStatus(ctx, "set done", err)
	}
	return ok(), nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := rpc.DecodeID(in)
	if err != nil {
		return nil, s.toStatus(ctx, "delete record", err)
	}

	if err := s.records.Delete(ctx, userID, id); err != nil {
		return nil, s.toStatus(ctx, "delete record", err)
	}
	return ok(), nil
}

func (s *GRPCServer) GetSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	es, err := s.records.Settings(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "get settings", err)
	}
	return rpc.EncodeSettings(es), nil
}

func (s *GRPCServer) SetSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	credentialID, keyCheck, err := rpc.DecodeSetSettings(in)
	if err != nil {
		return nil, s.toStatus(ctx, "set settings", err)
	}

	if err := s.records.SetSettings(ctx, userID, credentialID, keyCheck); err != nil {
		return nil, s.toStatus(ctx, "set settings", err)
	}
	return ok(), nil
}

func (s *GRPCServer) ClearSettings(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.records.ClearSettings(ctx, userID); err != nil {
		return nil, s.toStatus(ctx, "clear settings", err)
	}
	return ok(), nil
}
