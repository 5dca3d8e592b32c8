package service

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/storage"
)

// callerID returns the authenticated user's ID.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// groupForCaller loads a group the caller is an active member of. A user's
// member ID in a group is their user ID.
func groupForCaller(ctx context.Context, groups storage.GroupStore, groupID string) (*models.Group, string, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, "", invalidField("Required", "groupId", ErrGroupIDRequired)
	}
	userID, err := callerID(ctx)
	if err != nil {
		return nil, "", err
	}

	group, err := groups.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		return nil, "", internalError("failed to load group", err, "group_id", groupID)
	}

	if !group.IsActiveMember(userID) {
		return nil, "", connect.NewError(connect.CodePermissionDenied, ErrNotGroupMember)
	}
	return group, userID, nil
}

// loadLedger reads a group's expenses and settlements concurrently. The two
// reads are not one snapshot; a write landing between them shows up on the
// next request.
func loadLedger(ctx context.Context, store storage.Store, groupID string) ([]*models.Expense, []*models.Settlement, error) {
	var (
		expenses    []*models.Expense
		settlements []*models.Settlement
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expenses, err = store.ListExpensesByGroup(ctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		settlements, err = store.ListSettlementsByGroup(ctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return expenses, settlements, nil
}
