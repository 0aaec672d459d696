package app

import (
	"context"
	"errors"

	"community_chat_service/internal/account/domain"
	"community_chat_service/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountGRPCServer 用來實作 AccountServiceServer
type AccountGRPCServer struct {
	Usecase AccountUseCase
}

// GetAccount 實作 查詢帳號訂閱狀態
func (s *AccountGRPCServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accountID := req.GetFields()["account_id"].GetStringValue()
	logger.Log.Debug("GetAccount Req", zap.String("account_id", accountID))

	if accountID == "" {
		return nil, status.Error(codes.InvalidArgument, "account_id is required")
	}

	acc, err := s.Usecase.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		logger.Log.Error("GetAccount Err", zap.String("account_id", accountID), zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}

	res, err := encodeAccount(acc)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return res, nil
}
