package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage/sqlite"
	"github.com/mmynk/groupledger/pkg/api"
	"github.com/mmynk/groupledger/pkg/api/apiconnect"
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu          sync.Mutex
	expenses    []*models.Expense
	settlements []*models.Settlement
}

func (p *recordingPublisher) PublishExpenseRecorded(_ context.Context, e *models.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expenses = append(p.expenses, e)
	return nil
}

func (p *recordingPublisher) PublishSettlementRecorded(_ context.Context, s *models.Settlement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settlements = append(p.settlements, s)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.expenses), len(p.settlements)
}

type testEnv struct {
	store     *sqlite.SQLiteStore
	auth      apiconnect.AuthServiceClient
	groups    apiconnect.GroupServiceClient
	expenses  apiconnect.ExpenseServiceClient
	publisher *recordingPublisher
	metrics   *metrics.Metrics
}

// setupTestServer starts all three services behind the same interceptors the
// server uses, backed by a temporary database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	publisher := &recordingPublisher{}
	m := metrics.New()

	opts := []Option{WithPublisher(publisher), WithMetrics(m), WithDefaultCurrency("USD")}
	requireAuth := connect.WithInterceptors(middleware.RequireAuth(jwtManager))
	optionalAuth := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, store, slog.Default()), optionalAuth))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, opts...), requireAuth))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(store, opts...), requireAuth))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testEnv{
		store:     store,
		auth:      apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		groups:    apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
		expenses:  apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		publisher: publisher,
		metrics:   m,
	}
}

// withToken builds a request carrying a bearer token.
func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

type testUser struct {
	ID    string
	Token string
}

func (e *testEnv) register(t *testing.T, name string) testUser {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       name + "@example.com",
		DisplayName: name,
		Password:    "password-" + name,
	}))
	require.NoError(t, err, "register %s", name)
	return testUser{ID: resp.Msg.User.ID, Token: resp.Msg.Token}
}

// newGroup creates a group owned by owner and joins every other user, in order.
func (e *testEnv) newGroup(t *testing.T, owner testUser, others ...testUser) *api.Group {
	t.Helper()
	ctx := context.Background()
	resp, err := e.groups.CreateGroup(ctx, withToken(owner.Token, &api.CreateGroupRequest{Name: "Roommates"}))
	require.NoError(t, err)

	group := resp.Msg.Group
	for _, u := range others {
		joined, err := e.groups.JoinGroup(ctx, withToken(u.Token, &api.JoinGroupRequest{JoinCode: group.JoinCode}))
		require.NoError(t, err)
		group = joined.Msg.Group
	}
	return group
}

func balancesByMember(t *testing.T, e *testEnv, token, groupID string) map[string]*api.MemberBalance {
	t.Helper()
	resp, err := e.groups.GetGroupBalances(context.Background(), withToken(token, &api.GetGroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	out := make(map[string]*api.MemberBalance, len(resp.Msg.Balances))
	for _, b := range resp.Msg.Balances {
		out[b.MemberID] = b
	}
	return out
}

// assertCode checks err is a Connect error with the given code and, when
// kind is set, the error kind in its metadata.
func assertCode(t *testing.T, err error, code connect.Code, kind string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, connect.CodeOf(err), "error: %v", err)
	if kind == "" {
		return
	}
	var cerr *connect.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, kind, cerr.Meta().Get(ErrorKindKey))
}
