package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	pg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joripage/matching-core/pkg/model"
)

// dryRunDB builds SQL without ever connecting.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(pg.Open("host=localhost user=test dbname=test sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db
}

func TestBulkCreateSQL(t *testing.T) {
	db := dryRunDB(t)
	records := []*model.ExecutionEvent{
		{EventID: "a", Symbol: "XBT_USD", EventType: model.ExecutionEventTrade, EventTime: time.Unix(0, 0)},
		{EventID: "b", Symbol: "XBT_USD", EventType: model.ExecutionEventReject, EventTime: time.Unix(0, 0)},
	}

	stmt := db.Session(&gorm.Session{DryRun: true}).Clauses(onConflictDoNothing).Create(records).Statement
	sql := stmt.SQL.String()
	if !strings.HasPrefix(sql, `INSERT INTO "execution_events"`) {
		t.Fatalf("unexpected sql: %s", sql)
	}
	if !strings.Contains(sql, "ON CONFLICT DO NOTHING") {
		t.Fatalf("missing conflict clause: %s", sql)
	}
}

func TestBulkCreateEmpty(t *testing.T) {
	r := NewExecutionEventSQLRepo(dryRunDB(t))
	out, err := r.BulkCreate(context.Background(), nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("got %v, %v", out, err)
	}
}

func TestFindByOrderSQL(t *testing.T) {
	db := dryRunDB(t)
	var out []*model.ExecutionEvent
	stmt := findByOrder(db.Session(&gorm.Session{DryRun: true}), "XBT_USD", 42).Find(&out).Statement

	sql := stmt.SQL.String()
	for _, want := range []string{`FROM "execution_events"`, "taker_order_id = $2 OR maker_order_id = $3", "ORDER BY event_time, seq"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q does not contain %q", sql, want)
		}
	}
	if len(stmt.Vars) != 3 {
		t.Errorf("vars = %v", stmt.Vars)
	}
}
