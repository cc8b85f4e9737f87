package profile

import (
	"context"

	"chatwire/internal/auth"
)

// Directory is what the conversation views need from the profile system.
type Directory interface {
	LookupMany(ctx context.Context, userIDs []string) (map[string]Profile, error)
}

type store interface {
	FindMany(ctx context.Context, userIDs []string) ([]Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Upsert(ctx context.Context, p Profile) (*Profile, error)
}

type Service struct {
	repo store
}

func NewService(repo store) *Service {
	return &Service{repo: repo}
}

// LookupMany resolves the given ids to stored profiles. Absent ids are
// simply missing from the result; callers render them via ResolveOrStub.
func (s *Service) LookupMany(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[string]Profile{}, nil
	}

	profiles, err := s.repo.FindMany(ctx, unique)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

func (s *Service) Sync(ctx context.Context, principal auth.Principal, req SyncRequest) (*Profile, error) {
	p := Profile{
		UserID:      principal.UserID,
		DisplayName: normalizeDisplayName(req.DisplayName, principal.Claims),
		AvatarURL:   req.AvatarURL,
		Email:       req.Email,
	}
	if p.AvatarURL == "" {
		p.AvatarURL, _ = principal.Claims["image_url"].(string)
	}
	if p.Email == "" {
		p.Email, _ = principal.Claims["email"].(string)
	}
	return s.repo.Upsert(ctx, p)
}

func normalizeDisplayName(displayName string, claims map[string]any) string {
	if displayName != "" {
		return displayName
	}
	first, _ := claims["first_name"].(string)
	last, _ := claims["last_name"].(string)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	}
	if username, _ := claims["username"].(string); username != "" {
		return username
	}
	return "Chat User"
}

// ResolveOrStub returns the stored profile for id, or a deterministic
// placeholder so the UI never renders a blank member. The stub name uses
// the trailing portion of the id, which is stable across sessions.
func ResolveOrStub(profiles map[string]Profile, userID string) Profile {
	if p, ok := profiles[userID]; ok {
		if p.DisplayName == "" {
			p.DisplayName = stubName(userID)
		}
		return p
	}
	return Profile{
		UserID:      userID,
		DisplayName: stubName(userID),
	}
}

func stubName(userID string) string {
	runes := []rune(userID)
	if len(runes) > 4 {
		runes = runes[len(runes)-4:]
	}
	return "User " + string(runes)
}

var _ Directory = (*Service)(nil)
