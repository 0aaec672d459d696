package database

import (
	"context"
	"fmt"
	"time"

	"community_chat_service/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// CreateGRPCClient create grpc client and wait until the connection is READY or timeout
func CreateGRPCClient(grpcIP string, timeout time.Duration) (*grpc.ClientConn, error) {
	client, err := grpc.NewClient(grpcIP, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", grpcIP, err)
	}
	client.Connect()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		state := client.GetState()
		logger.Log.Debug(fmt.Sprintf("Connection[%s] state: %s", grpcIP, state))
		if state == connectivity.Ready {
			logger.Log.Info("Connection is READY")
			return client, nil
		}
		if !client.WaitForStateChange(ctx, state) {
			client.Close()
			return nil, fmt.Errorf("connection %s did not become READY within %s", grpcIP, timeout)
		}
	}
}
