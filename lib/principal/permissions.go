// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package principal

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"sync"
)

const (
	// RootName owns privileged drop-ins such as sudoers grants.
	RootName = "root"

	// WebGroupName is the group the web server (lighttpd or apache)
	// runs as. Files the web UI edits are group-writable for it.
	WebGroupName = "www-data"
)

// ErrUnknown reports a user or group name the host cannot resolve.
var ErrUnknown = errors.New("unknown principal")

// Account is one login account.
type Account struct {
	Name    string
	UID     uint32
	GID     uint32
	HomeDir string
}

// Resolver translates between principal names and numeric ids.
type Resolver interface {
	// LookupUser returns the account for name. Errors wrap ErrUnknown
	// when the name does not exist.
	LookupUser(name string) (Account, error)

	// LookupGroup returns the gid for name. Errors wrap ErrUnknown
	// when the group does not exist.
	LookupGroup(name string) (uint32, error)

	// UserName returns the name for uid, or the decimal uid when no
	// account has it.
	UserName(uid uint32) string

	// GroupName returns the name for gid, or the decimal gid when no
	// group has it.
	GroupName(gid uint32) string
}

// System resolves principals through os/user.
type System struct{}

// NewSystem returns a Resolver backed by the host's account database.
func NewSystem() System { return System{} }

func (System) LookupUser(name string) (Account, error) {
	account, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return Account{}, fmt.Errorf("user %q: %w", name, ErrUnknown)
		}
		return Account{}, fmt.Errorf("looking up user %q: %w", name, err)
	}
	uid, err := strconv.ParseUint(account.Uid, 10, 32)
	if err != nil {
		return Account{}, fmt.Errorf("user %q has non-numeric uid %q", name, account.Uid)
	}
	gid, err := strconv.ParseUint(account.Gid, 10, 32)
	if err != nil {
		return Account{}, fmt.Errorf("user %q has non-numeric gid %q", name, account.Gid)
	}
	return Account{Name: account.Username, UID: uint32(uid), GID: uint32(gid), HomeDir: account.HomeDir}, nil
}

func (System) LookupGroup(name string) (uint32, error) {
	group, err := user.LookupGroup(name)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return 0, fmt.Errorf("group %q: %w", name, ErrUnknown)
		}
		return 0, fmt.Errorf("looking up group %q: %w", name, err)
	}
	gid, err := strconv.ParseUint(group.Gid, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("group %q has non-numeric gid %q", name, group.Gid)
	}
	return uint32(gid), nil
}

func (System) UserName(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	account, err := user.LookupId(id)
	if err != nil {
		return id
	}
	return account.Username
}

func (System) GroupName(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	group, err := user.LookupGroupId(id)
	if err != nil {
		return id
	}
	return group.Name
}

// Static is a fixed account table. The zero value is not usable; call
// NewStatic.
type Static struct {
	mu       sync.RWMutex
	accounts map[string]Account
	groups   map[string]uint32
}

// NewStatic returns a table containing root (uid 0, group root gid 0).
func NewStatic() *Static {
	return &Static{
		accounts: map[string]Account{RootName: {Name: RootName, HomeDir: "/root"}},
		groups:   map[string]uint32{RootName: 0},
	}
}

// AddUser registers account. It does not create a group of the same
// name; call AddGroup for that.
func (s *Static) AddUser(account Account) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Name] = account
	return s
}

// AddGroup registers a group.
func (s *Static) AddGroup(name string, gid uint32) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[name] = gid
	return s
}

func (s *Static) LookupUser(name string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("user %q: %w", name, ErrUnknown)
	}
	return account, nil
}

func (s *Static) LookupGroup(name string) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gid, ok := s.groups[name]
	if !ok {
		return 0, fmt.Errorf("group %q: %w", name, ErrUnknown)
	}
	return gid, nil
}

func (s *Static) UserName(uid uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, account := range s.accounts {
		if account.UID == uid {
			return name
		}
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func (s *Static) GroupName(gid uint32) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, id := range s.groups {
		if id == gid {
			return name
		}
	}
	return strconv.FormatUint(uint64(gid), 10)
}
