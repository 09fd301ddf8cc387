package usage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/llmhub-dev/llmhub/internal/models"
	"gorm.io/gorm"
)

func setupReporterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:usage_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.ProviderKey{}, &models.UsageLog{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func seedUsage(t *testing.T, db *gorm.DB) (openaiKey, groqKey models.ProviderKey) {
	t.Helper()
	openaiKey = models.ProviderKey{Provider: "openai", KeyValue: "sk-a", Active: true, LastReset: time.Now().UTC()}
	groqKey = models.ProviderKey{Provider: "groq", KeyValue: "sk-b", Active: true, LastReset: time.Now().UTC()}
	if err := db.Create(&openaiKey).Error; err != nil {
		t.Fatalf("seed key: %v", err)
	}
	if err := db.Create(&groqKey).Error; err != nil {
		t.Fatalf("seed key: %v", err)
	}

	rows := []models.UsageLog{
		{ProviderKeyID: openaiKey.ID, Model: "smart", PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		{ProviderKeyID: openaiKey.ID, Model: "fast", PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		{ProviderKeyID: groqKey.ID, Model: "fast", PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed usage: %v", err)
		}
	}
	return openaiKey, groqKey
}

func TestListLogsNewestFirst(t *testing.T) {
	db := setupReporterTestDB(t)
	seedUsage(t, db)

	logs, total, err := NewReporter(db).ListLogs(context.Background(), LogFilter{})
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if total != 3 {
		t.Fatalf("total %d, want 3", total)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d rows, want 3", len(logs))
	}
	if logs[0].ID < logs[1].ID {
		t.Fatalf("rows not newest first: %d before %d", logs[0].ID, logs[1].ID)
	}
}

func TestListLogsFilters(t *testing.T) {
	db := setupReporterTestDB(t)
	openaiKey, groqKey := seedUsage(t, db)
	reporter := NewReporter(db)
	ctx := context.Background()

	byProvider, total, errProvider := reporter.ListLogs(ctx, LogFilter{Provider: "groq"})
	if errProvider != nil {
		t.Fatalf("ListLogs provider: %v", errProvider)
	}
	if total != 1 || len(byProvider) != 1 || byProvider[0].ProviderKeyID != groqKey.ID {
		t.Fatalf("provider filter returned %d rows (total %d)", len(byProvider), total)
	}

	byKey, _, errKey := reporter.ListLogs(ctx, LogFilter{KeyID: openaiKey.ID})
	if errKey != nil {
		t.Fatalf("ListLogs key: %v", errKey)
	}
	if len(byKey) != 2 {
		t.Fatalf("key filter returned %d rows, want 2", len(byKey))
	}

	byTier, _, errTier := reporter.ListLogs(ctx, LogFilter{Model: "fast"})
	if errTier != nil {
		t.Fatalf("ListLogs tier: %v", errTier)
	}
	if len(byTier) != 2 {
		t.Fatalf("tier filter returned %d rows, want 2", len(byTier))
	}
}

func TestListLogsPagination(t *testing.T) {
	db := setupReporterTestDB(t)
	seedUsage(t, db)

	page, total, err := NewReporter(db).ListLogs(context.Background(), LogFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if total != 3 {
		t.Fatalf("total %d, want 3", total)
	}
	if len(page) != 1 {
		t.Fatalf("page has %d rows, want 1", len(page))
	}
}

func TestStats(t *testing.T) {
	db := setupReporterTestDB(t)
	seedUsage(t, db)

	summary, err := NewReporter(db).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if summary.TotalRequests != 3 {
		t.Fatalf("total requests %d, want 3", summary.TotalRequests)
	}
	if summary.TotalTokens != 195 {
		t.Fatalf("total tokens %d, want 195", summary.TotalTokens)
	}
	if summary.TokensLast24h != 195 {
		t.Fatalf("recent tokens %d, want 195", summary.TokensLast24h)
	}

	if len(summary.ByProvider) != 2 {
		t.Fatalf("provider stats %d rows, want 2", len(summary.ByProvider))
	}
	if summary.ByProvider[0].Provider != "openai" || summary.ByProvider[0].TotalTokens != 165 {
		t.Fatalf("top provider = %+v", summary.ByProvider[0])
	}

	if len(summary.ByTier) != 2 {
		t.Fatalf("tier stats %d rows, want 2", len(summary.ByTier))
	}
	if summary.ByTier[0].Tier != "smart" || summary.ByTier[0].TotalTokens != 150 {
		t.Fatalf("top tier = %+v", summary.ByTier[0])
	}
}
