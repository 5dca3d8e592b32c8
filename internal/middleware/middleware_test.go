package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/pkg/api"
)

type ping struct{}

// call runs interceptor around a handler that captures the context it receives.
func call(t *testing.T, interceptor connect.UnaryInterceptorFunc, header string) (context.Context, error) {
	t.Helper()
	var got context.Context
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		got = ctx
		return connect.NewResponse(&ping{}), nil
	}
	req := connect.NewRequest(&ping{})
	if header != "" {
		req.Header().Set("Authorization", header)
	}
	_, err := interceptor(next)(context.Background(), req)
	return got, err
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		ctx, err := call(t, RequireAuth(jwtManager), "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", GetUserID(ctx))
		assert.Equal(t, "a@example.com", GetEmail(ctx))
	})

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic " + token,
		"bad token":      "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := call(t, RequireAuth(jwtManager), header)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	ctx, err := call(t, OptionalAuth(jwtManager), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", GetUserID(ctx))

	ctx, err = call(t, OptionalAuth(jwtManager), "Bearer invalid")
	require.NoError(t, err)
	assert.Empty(t, GetUserID(ctx))

	ctx, err = call(t, OptionalAuth(jwtManager), "")
	require.NoError(t, err)
	assert.Empty(t, GetUserID(ctx))
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), "u", "e@example.com")
	assert.Equal(t, "u", GetUserID(ctx))
	assert.Equal(t, "e@example.com", GetEmail(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}

func TestInterceptorsPassErrorsThrough(t *testing.T) {
	failing := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeDataLoss, assert.AnError)
	}
	for name, interceptor := range map[string]connect.UnaryInterceptorFunc{
		"logging": LoggingInterceptor(),
		"metrics": MetricsInterceptor(metrics.New()),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := interceptor(failing)(context.Background(), connect.NewRequest(&ping{}))
			assert.Equal(t, connect.CodeDataLoss, connect.CodeOf(err))
		})
	}
}

func TestLoggingInterceptor_ErrorMetadata(t *testing.T) {
	tests := []struct {
		name      string
		code      connect.Code
		kind      string
		field     string
		wantLevel string
	}{
		{"rejected split", connect.CodeInvalidArgument, "PercentageSumMismatch", "participants", "WARN"},
		{"integrity fault", connect.CodeDataLoss, "UnknownMember", "", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			failing := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				cerr := connect.NewError(tt.code, assert.AnError)
				cerr.Meta().Set(api.ErrorKindHeader, tt.kind)
				if tt.field != "" {
					cerr.Meta().Set(api.ErrorFieldHeader, tt.field)
				}
				return nil, cerr
			}

			ctx := WithUser(context.Background(), "user-1", "a@example.com")
			_, err := LoggingInterceptorWith(logger)(failing)(ctx, connect.NewRequest(&ping{}))
			require.Error(t, err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.kind, entry["kind"])
			assert.Equal(t, "user-1", entry["user_id"])
			assert.Equal(t, tt.code.String(), entry["code"])
			if tt.field == "" {
				assert.NotContains(t, entry, "field")
			} else {
				assert.Equal(t, tt.field, entry["field"])
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
	_, ok = bearerToken("Token abc")
	assert.False(t, ok)
}
