package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	asynqlib "github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"questboard/internal/config"
	"questboard/internal/logger"
	"questboard/internal/model"
	"questboard/pkg/asynq"
	"questboard/pkg/db"
	"questboard/pkg/taskname"
	"questboard/services/achievement"
	"questboard/services/gamification"
	"questboard/services/ledger"
	"questboard/services/project"
	"questboard/services/streak"
	"questboard/services/task"
	"questboard/services/tier"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		asynq.Client,
		asynq.Server,
		fx.Provide(
			provideSnowflakeNode,
			provideTierDispatcher,
			provideGamificationDispatcher,
			provideStreakDispatcher,
			provideTaskDispatcher,
		),
		ledger.Module,
		tier.Module,
		gamification.Module,
		project.Module,
		achievement.Module,
		task.Module,
		streak.Module,
		fx.Invoke(
			migrate,
			registerHandlers,
			registerMetrics,
		),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// The scoring services only know the dispatcher by interface; the asynq
// implementation is bound here so the services stay runnable without a
// worker in tests.
func provideTierDispatcher(d *achievement.Dispatcher) tier.AchievementDispatcher {
	return d
}

func provideGamificationDispatcher(d *achievement.Dispatcher) gamification.AchievementDispatcher {
	return d
}

func provideStreakDispatcher(d *achievement.Dispatcher) streak.AchievementDispatcher {
	return d
}

func provideTaskDispatcher(d *achievement.Dispatcher) task.AchievementDispatcher {
	return d
}

func migrate(database *gorm.DB) error {
	return database.AutoMigrate(model.All()...)
}

func registerHandlers(mux *asynqlib.ServeMux, achievements *achievement.Task, streaks *streak.Task) {
	mux.HandleFunc(taskname.AchievementCheck, achievements.HandleCheckTask)
	mux.HandleFunc(taskname.StreakSweep, streaks.HandleSweepTask)
}

func registerMetrics(database *gorm.DB, cfg *config.Config) error {
	return db.Metric(database, cfg.Database.Name)
}
