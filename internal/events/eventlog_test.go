package events_test

import (
	"context"
	"testing"

	"github.com/mind-engage/fungiquest/internal/db"
	"github.com/mind-engage/fungiquest/internal/events"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:TestAppendAndSince?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbh.Close()

	log := events.NewLog(dbh, "")
	if err := log.Append(ctx, events.TypeProgress, "u1/L1", map[string]any{"completed": true}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(ctx, events.TypeProfile, "u1", map[string]any{"total_xp": 60}); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := log.Since(ctx, 0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(all) != 2 || all[0].Type != events.TypeProgress || all[1].Key != "u1" || all[0].SiteID != "local" {
		t.Fatalf("unexpected events %+v", all)
	}
	if string(all[1].Data) != `{"total_xp":60}` {
		t.Fatalf("data = %s", all[1].Data)
	}

	rest, err := log.Since(ctx, all[0].Seq, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(rest) != 1 || rest[0].Seq != all[1].Seq {
		t.Fatalf("expected only the second event, got %+v", rest)
	}
}
