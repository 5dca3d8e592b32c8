package apiconnect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/pkg/api"
)

type echoExpenseService struct {
	UnimplementedExpenseServiceHandler
}

func (echoExpenseService) ValidateSplit(ctx context.Context, req *connect.Request[api.ValidateSplitRequest]) (*connect.Response[api.ValidateSplitResponse], error) {
	allocations := make([]*api.Allocation, 0, len(req.Msg.Participants))
	for _, p := range req.Msg.Participants {
		allocations = append(allocations, &api.Allocation{MemberID: p.MemberID, Amount: req.Msg.Amount})
	}
	return connect.NewResponse(&api.ValidateSplitResponse{Allocations: allocations}), nil
}

func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(NewExpenseServiceHandler(echoExpenseService{}))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientHandlerRoundTrip(t *testing.T) {
	server := newEchoServer(t)
	client := NewExpenseServiceClient(http.DefaultClient, server.URL+"/")

	resp, err := client.ValidateSplit(context.Background(), connect.NewRequest(&api.ValidateSplitRequest{
		Amount:       "1.50",
		Participants: []*api.Participant{{MemberID: "a"}},
	}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Allocations, 1)
	assert.Equal(t, "a", resp.Msg.Allocations[0].MemberID)
	assert.Equal(t, "1.50", resp.Msg.Allocations[0].Amount)

	_, err = client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: "x"}))
	assert.Equal(t, connect.CodeUnimplemented, connect.CodeOf(err))
}

func TestPlainJSONRequest(t *testing.T) {
	server := newEchoServer(t)

	resp, err := http.Post(server.URL+ExpenseServiceValidateSplitProcedure, "application/json",
		strings.NewReader(`{"amount":"9.99","participants":[{"memberId":"m1"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"allocations":[{"memberId":"m1","amount":"9.99"}]}`, string(body))
}

func TestUnknownProcedure(t *testing.T) {
	server := newEchoServer(t)

	resp, err := http.Post(server.URL+"/"+ExpenseServiceName+"/Nope", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJSONCodec_EmptyPayload(t *testing.T) {
	var req api.ListGroupsRequest
	assert.NoError(t, jsonCodec{}.Unmarshal(nil, &req))
	assert.Equal(t, "json", jsonCodec{}.Name())
}
