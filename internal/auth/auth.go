// Package auth resolves which commands a chat user may run.
package auth

import (
	"fmt"
	"strings"
)

// Role orders privileges: every role includes the ones below it.
type Role int

const (
	RoleAll Role = iota
	RoleMod
	RoleBroadcaster
)

func (r Role) String() string {
	switch r {
	case RoleMod:
		return "mod"
	case RoleBroadcaster:
		return "broadcaster"
	default:
		return "all"
	}
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return RoleAll, nil
	case "mod":
		return RoleMod, nil
	case "broadcaster":
		return RoleBroadcaster, nil
	default:
		return RoleAll, fmt.Errorf("unsupported role %q", s)
	}
}

// Moderator is a user allowed to run mod commands.
type Moderator struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type Repository interface {
	LoadAll() ([]Moderator, error)
	Upsert(m Moderator) error
	Remove(userID int64) error
}

// Service keeps the moderator set in memory, backed by an optional repo.
// It is only used from the coordinator goroutine.
type Service struct {
	repo       Repository
	ownerID    int64
	moderators map[int64]Moderator
}

// New returns an in-memory service with no moderators.
func New(ownerID int64) *Service {
	return &Service{ownerID: ownerID, moderators: make(map[int64]Moderator)}
}

// NewWithRepo preloads moderators from repo and merges the initial IDs.
func NewWithRepo(repo Repository, ownerID int64, initial []int64) (*Service, error) {
	s := New(ownerID)
	s.repo = repo
	if repo != nil {
		mods, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load moderators: %w", err)
		}
		for _, m := range mods {
			s.moderators[m.ID] = m
		}
	}
	for _, id := range initial {
		if _, ok := s.moderators[id]; !ok {
			s.moderators[id] = Moderator{ID: id}
		}
	}
	return s, nil
}

// RoleOf returns the highest role of userID.
func (s *Service) RoleOf(userID int64) Role {
	if s == nil {
		return RoleAll
	}
	if s.ownerID != 0 && userID == s.ownerID {
		return RoleBroadcaster
	}
	if _, ok := s.moderators[userID]; ok {
		return RoleMod
	}
	return RoleAll
}

func (s *Service) Upsert(m Moderator) error {
	s.moderators[m.ID] = m
	if s.repo != nil {
		return s.repo.Upsert(m)
	}
	return nil
}

func (s *Service) Remove(userID int64) error {
	delete(s.moderators, userID)
	if s.repo != nil {
		return s.repo.Remove(userID)
	}
	return nil
}

func (s *Service) List() []Moderator {
	out := make([]Moderator, 0, len(s.moderators))
	for _, m := range s.moderators {
		out = append(out, m)
	}
	return out
}
