// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/hostfs"
	"github.com/e3dc-control/installer/lib/principal"
)

// Inspector observes resources on the host.
type Inspector struct {
	FS         hostfs.FS
	Principals principal.Resolver
	Crontabs   crontab.Store
}

// Inspect observes definition. It never returns an error: failures are
// recorded in ObservedState.InspectionError with Exists false.
func (i *Inspector) Inspect(ctx context.Context, definition ResourceDefinition) ObservedState {
	var observed ObservedState
	var err error
	if definition.Kind == KindPeriodicTask {
		observed, err = i.inspectTask(ctx, definition)
	} else {
		observed, err = i.inspectPath(definition)
	}
	if err != nil {
		return ObservedState{InspectionError: &InspectionError{
			ResourceID: definition.ID,
			Location:   definition.Location(),
			Err:        err,
		}}
	}
	return observed
}

func (i *Inspector) inspectPath(definition ResourceDefinition) (ObservedState, error) {
	expected, err := i.resolveOwnership(definition)
	if err != nil {
		return ObservedState{}, err
	}

	info, err := i.FS.Stat(definition.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return ObservedState{}, nil
	}
	if err != nil {
		return ObservedState{}, err
	}

	wantDirectory := definition.Kind == KindDirectory
	if info.IsDir() != wantDirectory {
		if wantDirectory {
			return ObservedState{}, fmt.Errorf("%s exists but is not a directory", definition.Path)
		}
		return ObservedState{}, fmt.Errorf("%s exists but is a directory", definition.Path)
	}

	observed := ObservedState{
		Exists:         true,
		UID:            info.UID,
		GID:            info.GID,
		Mode:           info.Mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky),
		Executable:     info.Mode&0o100 != 0,
		ContentMatches: true,
	}
	// Prefer the declared name when the id matches, so aliases of the
	// same uid do not read as a mismatch.
	if info.UID == expected.uid {
		observed.Owner = definition.Owner
	} else {
		observed.Owner = i.Principals.UserName(info.UID)
	}
	if info.GID == expected.gid {
		observed.Group = definition.Group
	} else {
		observed.Group = i.Principals.GroupName(info.GID)
	}

	if definition.contentChecked() {
		data, err := i.FS.ReadFile(definition.Path)
		if err != nil {
			return ObservedState{}, err
		}
		observed.ContentMatches = bytes.Equal(data, definition.Content)
		observed.ContentDigest = digest(data)
	}
	return observed, nil
}

func (i *Inspector) inspectTask(ctx context.Context, definition ResourceDefinition) (ObservedState, error) {
	table, err := i.Crontabs.Read(ctx, definition.Task.Principal)
	if err != nil {
		return ObservedState{}, err
	}
	match, found := table.Find(definition.Task)
	if !found {
		return ObservedState{}, nil
	}
	return ObservedState{
		Exists:         true,
		ContentMatches: match.Exact,
		ContentDigest:  digest([]byte(match.Line)),
		TaskLine:       match.Line,
	}, nil
}

type ownership struct {
	uid uint32
	gid uint32
}

func (i *Inspector) resolveOwnership(definition ResourceDefinition) (ownership, error) {
	account, err := i.Principals.LookupUser(definition.Owner)
	if err != nil {
		return ownership{}, fmt.Errorf("resolving owner: %w", err)
	}
	gid, err := i.Principals.LookupGroup(definition.Group)
	if err != nil {
		return ownership{}, fmt.Errorf("resolving group: %w", err)
	}
	return ownership{uid: account.UID, gid: gid}, nil
}
