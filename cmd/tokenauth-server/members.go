package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/httpapi"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/social"
)

type memberRecord struct {
	member       httpapi.Member
	passwordHash string
}

// memberStore is an in-memory member directory. It backs both password login
// and social identity linking.
type memberStore struct {
	hasher *password.Hasher

	mu      sync.RWMutex
	byEmail map[string]memberRecord
	byID    map[string]memberRecord
	links   map[string]string
}

func newMemberStore(hasher *password.Hasher) *memberStore {
	return &memberStore{
		hasher:  hasher,
		byEmail: make(map[string]memberRecord),
		byID:    make(map[string]memberRecord),
		links:   make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func linkKey(provider, providerID string) string {
	return strings.ToLower(provider) + ":" + providerID
}

// memberDirectory is the member storage behind login and social linking.
type memberDirectory interface {
	httpapi.Authenticator
	httpapi.MemberLinker
	Add(ctx context.Context, seed memberSeed) error
	AddLink(ctx context.Context, link socialLink) error
}

// validate returns the parsed role of a seed that may hold credentials.
func (seed memberSeed) validate() (tokenauth.Role, error) {
	role, err := tokenauth.ParseRole(seed.Role)
	if err != nil {
		return "", fmt.Errorf("member %q: %w", seed.Email, err)
	}
	if role == tokenauth.RoleGuest {
		return "", fmt.Errorf("member %q: guests cannot hold credentials", seed.Email)
	}
	if strings.TrimSpace(seed.SubjectID) == "" || normalizeEmail(seed.Email) == "" {
		return "", fmt.Errorf("member %q: subject_id and email are required", seed.Email)
	}
	return role, nil
}

func (s *memberStore) Add(_ context.Context, seed memberSeed) error {
	role, err := seed.validate()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return fmt.Errorf("member %q: %w", seed.Email, err)
	}

	rec := memberRecord{
		member: httpapi.Member{
			SubjectID: seed.SubjectID,
			Role:      role,
			Email:     normalizeEmail(seed.Email),
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byEmail[rec.member.Email] = rec
	s.byID[rec.member.SubjectID] = rec
	return nil
}

func (s *memberStore) AddLink(_ context.Context, link socialLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[link.SubjectID]; !ok {
		return fmt.Errorf("social link %s/%s: unknown subject %q", link.Provider, link.ProviderID, link.SubjectID)
	}
	s.links[linkKey(link.Provider, link.ProviderID)] = link.SubjectID
	return nil
}

// Authenticate spends one hash comparison even for unknown emails.
func (s *memberStore) Authenticate(_ context.Context, email, pw string) (httpapi.Member, error) {
	s.mu.RLock()
	rec, ok := s.byEmail[normalizeEmail(email)]
	s.mu.RUnlock()

	if !s.hasher.Compare(pw, rec.passwordHash) || !ok {
		return httpapi.Member{}, httpapi.ErrInvalidCredentials
	}
	return rec.member, nil
}

func (s *memberStore) Link(_ context.Context, id social.Identity) (httpapi.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject, ok := s.links[linkKey(id.Provider, id.ProviderID)]
	if !ok {
		return httpapi.Member{}, false, nil
	}
	rec, ok := s.byID[subject]
	if !ok {
		return httpapi.Member{}, false, nil
	}
	return rec.member, true, nil
}
