package testtool

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	accountapp "community_chat_service/internal/account/app"
	accountdomain "community_chat_service/internal/account/domain"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// SetupContainer 通用函式來啟動測試容器, returns host and the mapped first exposed port
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	// "27017/tcp" → nat.Port
	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}

// MockAccountService in-memory account_service, safe for concurrent use
type MockAccountService struct {
	mu       sync.RWMutex
	accounts map[string]accountdomain.Account
}

// Put add or replace an account
func (m *MockAccountService) Put(acc accountdomain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID] = acc
}

// GetAccount implements accountapp.AccountUseCase
func (m *MockAccountService) GetAccount(_ context.Context, accountID string) (*accountdomain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return nil, accountdomain.ErrAccountNotFound
	}
	return &acc, nil
}

// SetSubscription implements accountapp.AccountUseCase
func (m *MockAccountService) SetSubscription(_ context.Context, accountID string, role accountdomain.Role, sub accountdomain.Subscription) error {
	m.Put(accountdomain.Account{ID: accountID, Role: role, Subscription: sub})
	return nil
}

// StartMockAccountGRPCServer 啟動 bufconn 上的 account gRPC 服務, returns a ready client and the backing store.
// Server and connection are closed by t.Cleanup.
func StartMockAccountGRPCServer(t testing.TB, accounts ...accountdomain.Account) (*accountapp.AccountClient, *MockAccountService) {
	t.Helper()

	svc := &MockAccountService{accounts: make(map[string]accountdomain.Account)}
	for _, acc := range accounts {
		svc.Put(acc)
	}

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer()
	accountapp.RegisterAccountServiceServer(grpcServer, &accountapp.AccountGRPCServer{Usecase: svc})
	go func() {
		_ = grpcServer.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		grpcServer.Stop()
	})
	return accountapp.NewAccountClient(conn), svc
}
