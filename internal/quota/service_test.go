package quota

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/llmhub-dev/llmhub/internal/models"
	"gorm.io/gorm"
)

func setupQuotaTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:quota_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.ProviderKey{}, &models.UsageLog{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func seedKey(t *testing.T, db *gorm.DB, key models.ProviderKey) models.ProviderKey {
	t.Helper()
	if key.LastReset.IsZero() {
		key.LastReset = time.Now().UTC()
	}
	if errCreate := db.Create(&key).Error; errCreate != nil {
		t.Fatalf("seed key: %v", errCreate)
	}
	return key
}

func TestUsableKeyPrefersLowestID(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	first := seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: true})
	seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k2", Active: true})

	got, err := svc.UsableKey(context.Background(), "openai")
	if err != nil {
		t.Fatalf("UsableKey: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("got key %d, want lowest id %d", got.ID, first.ID)
	}
}

func TestUsableKeySkipsInactiveAndWrongProvider(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: false})
	seedKey(t, db, models.ProviderKey{Provider: "groq", KeyValue: "k2", Active: true})

	if _, err := svc.UsableKey(context.Background(), "openai"); !errors.Is(err, ErrNoUsableKey) {
		t.Fatalf("expected ErrNoUsableKey, got %v", err)
	}
}

func TestUsableKeyQuotaFloor(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	// Exhausted bounded key is never returned.
	seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: true, DailyQuota: 100, UsedToday: 100})
	if _, err := svc.UsableKey(context.Background(), "openai"); !errors.Is(err, ErrNoUsableKey) {
		t.Fatalf("expected ErrNoUsableKey for exhausted key, got %v", err)
	}

	// A zero daily quota means unlimited, regardless of used_today.
	unlimited := seedKey(t, db, models.ProviderKey{Provider: "gemini", KeyValue: "k2", Active: true, DailyQuota: 0, UsedToday: 1 << 30})
	got, err := svc.UsableKey(context.Background(), "gemini")
	if err != nil {
		t.Fatalf("UsableKey: %v", err)
	}
	if got.ID != unlimited.ID {
		t.Fatalf("got key %d, want unlimited key %d", got.ID, unlimited.ID)
	}
}

func TestUsableKeyCooldownFloor(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	future := time.Now().UTC().Add(2 * time.Minute)
	cooled := seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: true, CooldownUntil: &future})

	if _, err := svc.UsableKey(context.Background(), "openai"); !errors.Is(err, ErrNoUsableKey) {
		t.Fatalf("expected ErrNoUsableKey during cooldown, got %v", err)
	}

	// Once the instant passes, the key is eligible with no explicit reset.
	past := time.Now().UTC().Add(-time.Second)
	if errUpdate := db.Model(&models.ProviderKey{}).
		Where("id = ?", cooled.ID).
		Update("cooldown_until", past).Error; errUpdate != nil {
		t.Fatalf("age cooldown: %v", errUpdate)
	}
	got, err := svc.UsableKey(context.Background(), "openai")
	if err != nil {
		t.Fatalf("UsableKey after cooldown lapse: %v", err)
	}
	if got.ID != cooled.ID {
		t.Fatalf("got key %d, want %d", got.ID, cooled.ID)
	}
}

func TestUsableKeyLazyDailyReset(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	stale := seedKey(t, db, models.ProviderKey{
		Provider:   "openai",
		KeyValue:   "k1",
		Active:     true,
		DailyQuota: 100,
		UsedToday:  100,
		LastReset:  time.Now().UTC().Add(-25 * time.Hour),
	})

	got, err := svc.UsableKey(context.Background(), "openai")
	if err != nil {
		t.Fatalf("UsableKey: %v", err)
	}
	if got.ID != stale.ID || got.UsedToday != 0 {
		t.Fatalf("expected reset key, got id=%d used=%d", got.ID, got.UsedToday)
	}

	var persisted models.ProviderKey
	if errTake := db.Where("id = ?", stale.ID).Take(&persisted).Error; errTake != nil {
		t.Fatalf("reload key: %v", errTake)
	}
	if persisted.UsedToday != 0 {
		t.Fatalf("reset not persisted: used_today=%d", persisted.UsedToday)
	}
	if time.Since(persisted.LastReset) > time.Minute {
		t.Fatalf("last_reset not advanced: %v", persisted.LastReset)
	}

	// Idempotent across repeated calls past the boundary.
	if _, errAgain := svc.UsableKey(context.Background(), "openai"); errAgain != nil {
		t.Fatalf("UsableKey second call: %v", errAgain)
	}
	var after models.ProviderKey
	if errTake := db.Where("id = ?", stale.ID).Take(&after).Error; errTake != nil {
		t.Fatalf("reload key: %v", errTake)
	}
	if after.UsedToday != 0 {
		t.Fatalf("repeated call disturbed counter: %d", after.UsedToday)
	}
}

func TestRecordUsageAppendsLogAndIncrementsCounter(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	key := seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: true, UsedToday: 10})

	if errRecord := svc.RecordUsage(context.Background(), key.ID, "smart", 30, 12); errRecord != nil {
		t.Fatalf("RecordUsage: %v", errRecord)
	}

	var logs []models.UsageLog
	if errFind := db.Find(&logs).Error; errFind != nil {
		t.Fatalf("load logs: %v", errFind)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly one log row, got %d", len(logs))
	}
	if logs[0].ProviderKeyID != key.ID || logs[0].Model != "smart" {
		t.Fatalf("unexpected log row: %+v", logs[0])
	}
	if logs[0].TotalTokens != 42 || logs[0].TotalTokens != logs[0].PromptTokens+logs[0].CompletionTokens {
		t.Fatalf("total tokens = %d, want prompt+completion", logs[0].TotalTokens)
	}

	var persisted models.ProviderKey
	if errTake := db.Where("id = ?", key.ID).Take(&persisted).Error; errTake != nil {
		t.Fatalf("reload key: %v", errTake)
	}
	if persisted.UsedToday != 52 {
		t.Fatalf("used_today = %d, want 52", persisted.UsedToday)
	}
}

func TestSetCooldownDefaultsDuration(t *testing.T) {
	db := setupQuotaTestDB(t)
	svc := NewService(db)

	key := seedKey(t, db, models.ProviderKey{Provider: "openai", KeyValue: "k1", Active: true})
	before := time.Now().UTC()
	if errCooldown := svc.SetCooldown(context.Background(), key.ID, 0); errCooldown != nil {
		t.Fatalf("SetCooldown: %v", errCooldown)
	}

	var persisted models.ProviderKey
	if errTake := db.Where("id = ?", key.ID).Take(&persisted).Error; errTake != nil {
		t.Fatalf("reload key: %v", errTake)
	}
	if persisted.CooldownUntil == nil {
		t.Fatalf("cooldown_until not set")
	}
	remaining := persisted.CooldownUntil.Sub(before)
	if remaining < 4*time.Minute || remaining > 6*time.Minute {
		t.Fatalf("cooldown window = %v, want about %v", remaining, DefaultCooldown)
	}
}
