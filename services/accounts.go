package services

import (
	"errors"
	"fmt"
	"os"

	"nasforge/account"
	"nasforge/plan"
	"nasforge/truenas"
	"nasforge/zfs"
)

// placeholderHome is what phase 1 users get before their dataset exists.
const placeholderHome = "/nonexistent"

// ApplyAccounts is phase 1: groups first, then users with a placeholder
// home. Homes are wired up in phase 3 once datasets exist.
func (a *Applier) ApplyAccounts() error {
	a.groupIDs = map[string]int{}

	for _, g := range a.Plan.Groups {
		if err := a.applyGroup(g); err != nil {
			return err
		}
	}
	for _, s := range a.Plan.Services {
		if err := a.applyUser(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyGroup(g plan.Group) error {
	if a.Mode == ModeLocal {
		if account.GroupExists(g.Name) {
			a.record(1, "group", g.Name, OutcomeUnchanged, fmt.Sprintf("gid=%d", g.GID))
			return nil
		}
		if a.DryRun {
			a.record(1, "group", g.Name, OutcomeSkipped, "dry-run: would create")
			return nil
		}
		if err := account.CreateGroup(g.Name, g.GID); err != nil {
			return a.fail(1, "group", g.Name, err)
		}
		a.record(1, "group", g.Name, OutcomeCreated, fmt.Sprintf("gid=%d", g.GID))
		return nil
	}

	existing, err := a.Client.QueryGroup(g.Name)
	if err == nil {
		a.groupIDs[g.Name] = existing.ID
		a.record(1, "group", g.Name, OutcomeUnchanged, fmt.Sprintf("gid=%d", existing.GID))
		return nil
	}
	if !errors.Is(err, truenas.ErrNotFound) {
		return a.fail(1, "group", g.Name, err)
	}
	if a.DryRun {
		a.record(1, "group", g.Name, OutcomeSkipped, "dry-run: would create")
		return nil
	}
	id, err := a.Client.CreateGroup(g.Name, g.GID)
	if err != nil {
		return a.fail(1, "group", g.Name, err)
	}
	a.groupIDs[g.Name] = id
	a.record(1, "group", g.Name, OutcomeCreated, fmt.Sprintf("gid=%d", g.GID))
	return nil
}

func (a *Applier) applyUser(s plan.Service) error {
	g := a.Plan.GroupFor(s)

	if a.Mode == ModeLocal {
		if account.UserExists(s.Name) {
			a.record(1, "user", s.Name, OutcomeUnchanged, fmt.Sprintf("uid=%d", s.UID))
			return nil
		}
		if a.DryRun {
			a.record(1, "user", s.Name, OutcomeSkipped, "dry-run: would create")
			return nil
		}
		if err := account.CreateUser(s.Name, s.UID, g.GID, placeholderHome, s.Shell, s.Comment); err != nil {
			return a.fail(1, "user", s.Name, err)
		}
		a.record(1, "user", s.Name, OutcomeCreated, fmt.Sprintf("uid=%d", s.UID))
		return nil
	}

	existing, err := a.Client.QueryUser(s.Name)
	if err == nil {
		a.record(1, "user", s.Name, OutcomeUnchanged, fmt.Sprintf("uid=%d", existing.UID))
		return nil
	}
	if !errors.Is(err, truenas.ErrNotFound) {
		return a.fail(1, "user", s.Name, err)
	}
	if a.DryRun {
		a.record(1, "user", s.Name, OutcomeSkipped, "dry-run: would create")
		return nil
	}

	groupID, ok := a.groupIDs[s.Group]
	if !ok {
		grp, err := a.Client.QueryGroupByGID(g.GID)
		if err != nil {
			return a.fail(1, "user", s.Name, fmt.Errorf("resolve group %s: %w", s.Group, err))
		}
		groupID = grp.ID
		a.groupIDs[s.Group] = groupID
	}

	fullName := s.Comment
	if fullName == "" {
		fullName = s.Name + " service account"
	}
	_, err = a.Client.CreateUser(s.Name, s.UID, groupID, placeholderHome, s.Shell, fullName)
	if err != nil && !errors.Is(err, truenas.ErrAlreadyExists) {
		return a.fail(1, "user", s.Name, err)
	}
	a.record(1, "user", s.Name, OutcomeCreated, fmt.Sprintf("uid=%d", s.UID))
	return nil
}

// ApplyHomes is phase 3: point every user at its real home and fix
// ownership. Datasets exist by now, users exist, so chown can run.
func (a *Applier) ApplyHomes() error {
	for _, s := range a.Plan.Services {
		if err := a.applyHome(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applyHome(s plan.Service) error {
	g := a.Plan.GroupFor(s)

	if a.DryRun {
		a.record(3, "home", s.Name, OutcomeSkipped, "dry-run: would assign "+s.Home)
		return nil
	}

	if a.Mode == ModeLocal {
		current, err := account.LookupUserHome(s.Name)
		if err != nil {
			return a.fail(3, "home", s.Name, err)
		}
		outcome := OutcomeUnchanged
		if current != s.Home {
			if err := os.MkdirAll(s.Home, 0o755); err != nil {
				return a.fail(3, "home", s.Name, err)
			}
			if err := account.SetUserHome(s.Name, s.Home); err != nil {
				return a.fail(3, "home", s.Name, err)
			}
			outcome = OutcomeUpdated
		}
		if err := zfs.Chown(s.Home, s.UID, g.GID, s.Recursive); err != nil {
			return a.fail(3, "home", s.Name, err)
		}
		a.record(3, "home", s.Name, outcome, s.Home)
		return nil
	}

	u, err := a.Client.QueryUser(s.Name)
	if err != nil {
		return a.fail(3, "home", s.Name, err)
	}
	outcome := OutcomeUnchanged
	if u.Home != s.Home {
		if err := a.Client.Mkdir(s.Home); err != nil {
			return a.fail(3, "home", s.Name, err)
		}
		if err := a.Client.UpdateUser(u.ID, map[string]any{"home": s.Home}); err != nil {
			return a.fail(3, "home", s.Name, err)
		}
		outcome = OutcomeUpdated
	}
	if err := a.Client.SetPerm(s.Home, s.UID, g.GID, s.Recursive); err != nil {
		return a.fail(3, "home", s.Name, err)
	}
	a.record(3, "home", s.Name, outcome, s.Home)
	return nil
}
