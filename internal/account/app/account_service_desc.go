package app

import (
	"context"
	"fmt"
	"time"

	"community_chat_service/internal/account/domain"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// GetAccountMethod full gRPC method name
const GetAccountMethod = "/account.AccountService/GetAccount"

// AccountServiceServer gRPC surface of the account service, payloads are structpb.Struct
type AccountServiceServer interface {
	GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AccountServiceDesc registered with grpc.Server.RegisterService
var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: "account.AccountService",
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetAccount",
			Handler:    getAccountHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "account.proto",
}

// RegisterAccountServiceServer register srv on s
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}

func getAccountHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccountServiceServer).GetAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetAccountMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccountServiceServer).GetAccount(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// encodeAccount account -> wire struct
func encodeAccount(acc *domain.Account) (*structpb.Struct, error) {
	sub := map[string]interface{}{
		"status": string(acc.Subscription.Status),
	}
	if acc.Subscription.Status == domain.SubscriptionTrial {
		sub["trial_ends_at"] = acc.Subscription.TrialEndsAt.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(map[string]interface{}{
		"account_id":   acc.ID,
		"role":         string(acc.Role),
		"subscription": sub,
	})
}

// decodeAccount wire struct -> account, the subscription must be one of the known variants
func decodeAccount(s *structpb.Struct) (*domain.Account, error) {
	fields := s.GetFields()
	acc := &domain.Account{
		ID:   fields["account_id"].GetStringValue(),
		Role: domain.Role(fields["role"].GetStringValue()),
	}

	subFields := fields["subscription"].GetStructValue().GetFields()
	var endsAt time.Time
	if raw := subFields["trial_ends_at"].GetStringValue(); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("trial_ends_at: %w", err)
		}
		endsAt = t
	}
	sub, err := domain.ParseSubscription(subFields["status"].GetStringValue(), endsAt)
	if err != nil {
		return nil, err
	}
	acc.Subscription = sub
	return acc, nil
}
