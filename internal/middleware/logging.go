package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/pkg/api"
)

// LoggingInterceptor logs every RPC through the default logger.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return LoggingInterceptorWith(nil)
}

// LoggingInterceptorWith logs every RPC through logger, or the default logger
// when nil. Rejected splits and other client errors log at WARN with the error
// kind and field a client would see. Server faults, including ledger integrity
// errors, log at ERROR.
func LoggingInterceptorWith(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			log := logger
			if log == nil {
				log = slog.Default()
			}
			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.String("user_id", GetUserID(ctx)),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if err == nil {
				log.LogAttrs(ctx, slog.LevelInfo, "RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, slog.String("code", code.String()))
			var cerr *connect.Error
			if errors.As(err, &cerr) {
				if kind := cerr.Meta().Get(api.ErrorKindHeader); kind != "" {
					attrs = append(attrs, slog.String("kind", kind))
				}
				if field := cerr.Meta().Get(api.ErrorFieldHeader); field != "" {
					attrs = append(attrs, slog.String("field", field))
				}
			}

			if serverFault(code) {
				log.LogAttrs(ctx, slog.LevelError, "RPC failed", append(attrs, slog.Any("error", err))...)
			} else {
				msg := err.Error()
				if cerr != nil {
					msg = cerr.Message()
				}
				log.LogAttrs(ctx, slog.LevelWarn, "RPC rejected", append(attrs, slog.String("error", msg))...)
			}
			return resp, err
		}
	}
}

// serverFault reports codes that point at the server or its data rather than
// the request.
func serverFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeDataLoss, connect.CodeUnknown, connect.CodeUnavailable:
		return true
	}
	return false
}
