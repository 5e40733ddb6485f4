package content

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/localstore"
	"github.com/mind-engage/fungiquest/internal/schema"
)

// ProfileEdit is what the profile editor may change.
type ProfileEdit struct {
	DisplayName string
	Bio         string
	Country     string
	Region      string
}

type LeaderboardRow struct {
	DisplayName string `json:"display_name"`
	TotalXP     int    `json:"total_xp"`
}

// FallbackLeaderboard is shown when the profiles table cannot be read.
var FallbackLeaderboard = []LeaderboardRow{
	{DisplayName: "Ellen P", TotalXP: 8000},
	{DisplayName: "Buzz A", TotalXP: 4000},
	{DisplayName: "Alan S", TotalXP: 2000},
	{DisplayName: "Amy P", TotalXP: 1000},
}

// GetProfile returns the signed-in user's profile, or the device's local
// profile when signed out. A user without a row gets an empty profile.
func (c *Client) GetProfile(ctx context.Context) (schema.Profile, error) {
	uid := c.id.UserID()
	if uid == "" {
		return c.localProfile(ctx)
	}
	p, found, err := c.remoteProfile(ctx, uid)
	if err != nil {
		return schema.Profile{}, err
	}
	if !found {
		return schema.Profile{UserID: uid, Badges: []string{}}, nil
	}
	return p, nil
}

// SaveProfile stores the edit locally and, when signed in, remotely. The
// remote write is best effort.
func (c *Client) SaveProfile(ctx context.Context, e ProfileEdit) (schema.Profile, error) {
	p, err := c.localProfile(ctx)
	if err != nil {
		return schema.Profile{}, err
	}
	uid := c.id.UserID()
	p.UserID = uid
	p.DisplayName, p.Bio, p.Country, p.Region = e.DisplayName, e.Bio, e.Country, e.Region
	if err := c.saveLocalProfile(ctx, p); err != nil {
		return schema.Profile{}, err
	}
	if uid == "" {
		return p, nil
	}
	rec := schema.Record{
		"user_id":      uid,
		"display_name": e.DisplayName,
		"bio":          e.Bio,
		"country":      e.Country,
		"region":       e.Region,
	}
	if err := c.store.Upsert(ctx, backend.TableProfiles, []schema.Record{rec}); err != nil {
		c.log.Warn("save profile: remote write failed", "user", uid, "error", err)
		return p, nil
	}
	if remote, found, err := c.remoteProfile(ctx, uid); err == nil && found {
		return remote, nil
	}
	return p, nil
}

// AddProfileXP adds delta to the user's cumulative XP and returns the new
// total. Signed-out users accumulate in the local profile. Remote failures
// are logged and leave the total unchanged.
func (c *Client) AddProfileXP(ctx context.Context, delta int) (int, error) {
	uid := c.id.UserID()
	if uid == "" {
		p, err := c.localProfile(ctx)
		if err != nil {
			return 0, err
		}
		p.TotalXP += delta
		return p.TotalXP, c.saveLocalProfile(ctx, p)
	}
	p, _, err := c.remoteProfile(ctx, uid)
	if err != nil {
		c.log.Warn("add xp: profile read failed", "user", uid, "error", err)
		return 0, nil
	}
	next := p.TotalXP + delta
	rec := schema.Record{"user_id": uid, "total_xp": next}
	if err := c.store.Upsert(ctx, backend.TableProfiles, []schema.Record{rec}); err != nil {
		c.log.Warn("add xp: remote write failed", "user", uid, "error", err)
		return p.TotalXP, nil
	}
	return next, nil
}

// Leaderboard lists up to limit profiles by total XP, highest first. When
// the backend fails a fixed board is returned instead.
func (c *Client) Leaderboard(ctx context.Context, limit int) []LeaderboardRow {
	if limit <= 0 {
		limit = 20
	}
	q := backend.From(backend.TableProfiles).Order("total_xp", true).Take(limit)
	rows, err := c.store.Select(ctx, *q)
	if err != nil {
		c.log.Warn("leaderboard: using fallback", "error", err)
		return append([]LeaderboardRow(nil), FallbackLeaderboard...)
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		p := c.norm.Profile(r)
		out = append(out, LeaderboardRow{DisplayName: p.DisplayName, TotalXP: p.TotalXP})
	}
	return out
}

func (c *Client) remoteProfile(ctx context.Context, uid string) (schema.Profile, bool, error) {
	rows, err := c.store.Select(ctx, *backend.From(backend.TableProfiles).WhereEq("user_id", uid).Take(1))
	if err != nil {
		return schema.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return schema.Profile{UserID: uid}, false, nil
	}
	return c.norm.Profile(rows[0]), true, nil
}

func (c *Client) localProfile(ctx context.Context) (schema.Profile, error) {
	raw, ok, err := c.local.Get(ctx, localstore.KeyProfileLocal)
	if err != nil {
		return schema.Profile{}, fmt.Errorf("read local profile: %w", err)
	}
	if !ok {
		return schema.Profile{Badges: []string{}}, nil
	}
	var r schema.Record
	if json.Unmarshal([]byte(raw), &r) != nil {
		c.log.Warn("local profile unreadable, starting empty")
		return schema.Profile{Badges: []string{}}, nil
	}
	return c.norm.Profile(r), nil
}

func (c *Client) saveLocalProfile(ctx context.Context, p schema.Profile) error {
	b, err := json.Marshal(schema.ProfileRecord(p))
	if err != nil {
		return err
	}
	return c.local.Set(ctx, localstore.KeyProfileLocal, string(b))
}
