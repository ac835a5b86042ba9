package metadata

import (
	"context"
	"fmt"
)

// Session is the auth state the CLI restores on start.
type Session struct {
	Subject      string
	AccessToken  string
	RefreshToken string
	IDToken      string
}

// SaveSession writes every non-empty session field.
func SaveSession(ctx context.Context, r Repository, s Session) error {
	for key, v := range map[string]string{
		KeySubject:      s.Subject,
		KeyAccessToken:  s.AccessToken,
		KeyRefreshToken: s.RefreshToken,
		KeyIDToken:      s.IDToken,
	} {
		if v == "" {
			continue
		}
		if err := r.Set(ctx, key, []byte(v)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

// LoadSession returns the stored session. Missing keys come back empty.
func LoadSession(ctx context.Context, r Repository) (Session, error) {
	all, err := r.List(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return Session{
		Subject:      string(all[KeySubject]),
		AccessToken:  string(all[KeyAccessToken]),
		RefreshToken: string(all[KeyRefreshToken]),
		IDToken:      string(all[KeyIDToken]),
	}, nil
}
