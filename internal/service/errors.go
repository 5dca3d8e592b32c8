package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
)

const (
	ErrorKindKey  = api.ErrorKindHeader
	ErrorFieldKey = api.ErrorFieldHeader
)

var (
	ErrGroupIDRequired   = errors.New("group_id required")
	ErrNotGroupMember    = errors.New("not a member of this group")
	ErrUnknownPayer      = errors.New("payer is not an active member of the group")
	ErrUnknownMember     = errors.New("member is not an active member of the group")
	ErrCurrencyNotGroup  = errors.New("currency must match the group currency")
	ErrShareRequired     = errors.New("share is required for this strategy")
	ErrSelfSettlement    = errors.New("a member cannot settle with themselves")
	ErrUnsettledBalance  = errors.New("member must be settled up before leaving")
	ErrNotGuest          = errors.New("only guest members can be removed by others")
	ErrNameRequired      = errors.New("name is required")
	ErrJoinCodeRequired  = errors.New("join code is required")
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
)

// invalidField reports a request field that failed validation.
func invalidField(kind, field string, err error) *connect.Error {
	cerr := connect.NewError(connect.CodeInvalidArgument, err)
	cerr.Meta().Set(ErrorKindKey, kind)
	if field != "" {
		cerr.Meta().Set(ErrorFieldKey, field)
	}
	return cerr
}

// toConnectError maps domain and storage errors to Connect codes.
func toConnectError(err error) *connect.Error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	var verr *calculator.ValidationError
	if errors.As(err, &verr) {
		return invalidField(calculator.Kind(err), verr.Field, err)
	}

	var ierr *calculator.IntegrityError
	if errors.As(err, &ierr) {
		cerr := connect.NewError(connect.CodeDataLoss, err)
		cerr.Meta().Set(ErrorKindKey, calculator.Kind(err))
		return cerr
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// internalError logs err with its context and hides the details from the caller.
func internalError(msg string, err error, args ...any) *connect.Error {
	slog.Error(msg, append(args, "error", err)...)
	return connect.NewError(connect.CodeInternal, errors.New(msg))
}
