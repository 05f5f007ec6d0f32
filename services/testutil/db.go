package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"questboard/internal/config"
	"questboard/internal/model"
)

// NewTestDB opens an in-memory SQLite database migrated with the full
// questboard schema and closes it when the test finishes.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// NewNode returns a snowflake node for ID generation in tests.
func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	return node
}

// NewTestConfig returns a config with the documented gamification defaults.
func NewTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Gamification.PointsPerOpenTask = 50
	cfg.Gamification.PointsPerCompletedTask = 100
	cfg.Sweeper.Schedule = "0 1 * * *"
	cfg.Sweeper.ChunkSize = 100
	return cfg
}

// SeedUser inserts a user with the given points.
func SeedUser(t *testing.T, db *gorm.DB, id string, points int64) *model.User {
	t.Helper()

	user := &model.User{
		ID:     id,
		Name:   id,
		Email:  id + "@example.com",
		Points: points,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", id, err)
	}
	return user
}

// SeedTier inserts a tier.
func SeedTier(t *testing.T, db *gorm.DB, id, name string, minPoints int64, sortOrder int) *model.Tier {
	t.Helper()

	tier := &model.Tier{
		ID:        id,
		Name:      name,
		MinPoints: minPoints,
		SortOrder: sortOrder,
	}
	if err := db.Create(tier).Error; err != nil {
		t.Fatalf("failed to seed tier %s: %v", name, err)
	}
	return tier
}

// SeedProject inserts a project and its member rows.
func SeedProject(t *testing.T, db *gorm.DB, id, leaderID string, memberIDs ...string) *model.Project {
	t.Helper()

	project := &model.Project{
		ID:       id,
		Name:     id,
		LeaderID: leaderID,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to seed project %s: %v", id, err)
	}
	for i, userID := range memberIDs {
		member := &model.ProjectMember{
			ID:        fmt.Sprintf("%s-member-%d", id, i),
			ProjectID: id,
			UserID:    userID,
			CreatedAt: time.Now(),
		}
		if err := db.Create(member).Error; err != nil {
			t.Fatalf("failed to seed member %s: %v", userID, err)
		}
	}
	return project
}
