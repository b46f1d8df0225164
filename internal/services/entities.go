package services

import (
	"context"
	"fmt"

	"expresso/internal/core"
	applog "expresso/internal/log"
	"expresso/internal/remote"
)

func (c *Coordinator) CreateAccount(ctx context.Context, in NewAccount) (core.Account, error) {
	if err := c.check(in); err != nil {
		return core.Account{}, err
	}
	kind, _ := core.ParseAccountKind(in.Kind)
	opening, _ := parseBalance(in.OpeningBalance)
	req := remote.AccountRequest{OwnerID: c.ownerID, Name: in.Name, Kind: kind, OpeningBalance: opening}

	return once(c, ActionCreateAccount, req, func() (core.Account, error) {
		a, err := c.remote.CreateAccount(detach(ctx), req)
		if derr := c.discarded(ctx, ActionCreateAccount); derr != nil {
			return core.Account{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionCreateAccount, err)
			return core.Account{}, err
		}
		c.logger.InfoContext(ctx, "Account created", applog.FieldAccountID, a.ID)
		refreshErr := c.refresher.RefreshAccounts(ctx)
		c.logRefresh(ctx, ActionCreateAccount, refreshErr)
		return a, refreshErr
	})
}

// CreateGoal creates a goal; the collaborator creates its vault account.
func (c *Coordinator) CreateGoal(ctx context.Context, in NewGoal) (core.Goal, error) {
	if err := c.check(in); err != nil {
		return core.Goal{}, err
	}
	target, _ := core.ParseAmount(in.Target)
	date, _ := core.ParseDate(in.TargetDate)
	req := remote.GoalRequest{OwnerID: c.ownerID, Name: in.Name, Target: target, TargetDate: date}

	return once(c, ActionCreateGoal, req, func() (core.Goal, error) {
		g, err := c.remote.CreateGoal(detach(ctx), req)
		if derr := c.discarded(ctx, ActionCreateGoal); derr != nil {
			return core.Goal{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionCreateGoal, err)
			return core.Goal{}, err
		}
		c.logger.InfoContext(ctx, "Goal created", applog.FieldGoalID, g.ID, applog.FieldAccountID, g.VaultAccountID)
		refreshErr := c.refresher.RefreshAfterGoal(ctx)
		c.logRefresh(ctx, ActionCreateGoal, refreshErr)
		return g, refreshErr
	})
}

func (c *Coordinator) CreateCategory(ctx context.Context, in CategoryName) (core.Category, error) {
	if err := c.check(in); err != nil {
		return core.Category{}, err
	}
	return once(c, ActionCreateCategory, in, func() (core.Category, error) {
		cat, err := c.remote.CreateCategory(detach(ctx), c.ownerID, in.Name)
		if derr := c.discarded(ctx, ActionCreateCategory); derr != nil {
			return core.Category{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionCreateCategory, err)
			return core.Category{}, err
		}
		refreshErr := c.refresher.RefreshCategories(ctx)
		c.logRefresh(ctx, ActionCreateCategory, refreshErr)
		return cat, refreshErr
	})
}

func (c *Coordinator) RenameCategory(ctx context.Context, id int64, in CategoryName) (core.Category, error) {
	if err := c.check(in); err != nil {
		return core.Category{}, err
	}
	if err := c.checkEditable(id); err != nil {
		return core.Category{}, err
	}
	key := struct {
		ID   int64
		Name string
	}{id, in.Name}
	return once(c, ActionRenameCategory, key, func() (core.Category, error) {
		cat, err := c.remote.UpdateCategory(detach(ctx), c.ownerID, id, in.Name)
		if derr := c.discarded(ctx, ActionRenameCategory); derr != nil {
			return core.Category{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionRenameCategory, err)
			return core.Category{}, err
		}
		refreshErr := c.refresher.RefreshCategories(ctx)
		c.logRefresh(ctx, ActionRenameCategory, refreshErr)
		return cat, refreshErr
	})
}

// DeleteCategory refreshes categories only: transactions keep their
// category id and are shown uncategorized by the views.
func (c *Coordinator) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("id", "identificador inválido")
	}
	if err := c.checkEditable(id); err != nil {
		return err
	}
	_, err := once(c, ActionDeleteCategory, id, func() (struct{}, error) {
		err := c.remote.DeleteCategory(detach(ctx), c.ownerID, id)
		if derr := c.discarded(ctx, ActionDeleteCategory); derr != nil {
			return struct{}{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionDeleteCategory, err)
			return struct{}{}, err
		}
		refreshErr := c.refresher.RefreshCategories(ctx)
		c.logRefresh(ctx, ActionDeleteCategory, refreshErr)
		return struct{}{}, refreshErr
	})
	return err
}

func (c *Coordinator) checkEditable(id int64) error {
	snap := c.snapshot()
	if snap == nil {
		return nil
	}
	if cat, ok := snap.Category(id); ok && cat.Protected() {
		return fmt.Errorf("category %q: %w", cat.Name, ErrProtectedCategory)
	}
	return nil
}

// UpdateProfile touches no collection, so nothing is refreshed.
func (c *Coordinator) UpdateProfile(ctx context.Context, in ProfileInput) (core.Profile, error) {
	if err := c.check(in); err != nil {
		return core.Profile{}, err
	}
	req := remote.ProfileUpdate{
		OwnerID:         c.ownerID,
		Name:            in.Name,
		Email:           in.Email,
		CurrentPassword: in.CurrentPassword,
		NewPassword:     in.NewPassword,
	}
	return once(c, ActionUpdateProfile, req, func() (core.Profile, error) {
		p, err := c.remote.UpdateProfile(detach(ctx), req)
		if derr := c.discarded(ctx, ActionUpdateProfile); derr != nil {
			return core.Profile{}, derr
		}
		if err != nil {
			c.logFailure(ctx, ActionUpdateProfile, err)
		}
		return p, err
	})
}

// DeleteProfile removes the owner and all their data. On success the store
// is closed: its consumer no longer exists.
func (c *Coordinator) DeleteProfile(ctx context.Context, in ProfileDeletion) error {
	if err := c.check(in); err != nil {
		return err
	}
	_, err := once(c, ActionDeleteProfile, c.ownerID, func() (struct{}, error) {
		err := c.remote.DeleteProfile(detach(ctx), c.ownerID, in.CurrentPassword)
		derr := c.discarded(ctx, ActionDeleteProfile)
		if err != nil {
			if derr != nil {
				return struct{}{}, derr
			}
			c.logFailure(ctx, ActionDeleteProfile, err)
			return struct{}{}, err
		}
		// The owner is gone whether or not the caller is still waiting.
		c.logger.InfoContext(ctx, "Profile deleted", applog.FieldOwnerID, c.ownerID)
		c.store.Close()
		return struct{}{}, derr
	})
	return err
}
