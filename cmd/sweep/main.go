// Command timeclock-sweep recomputes attendance exceptions for an employee-day.
// It is meant to run from cron after each business day closes.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akozhin/timeclock/internal/exceptions"
	"github.com/akozhin/timeclock/internal/repository/postgres"
	"github.com/akozhin/timeclock/internal/service"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("TIMECLOCK_DSN"), "PostgreSQL DSN")
	tenant := flag.String("tenant", "", "tenant UUID (required)")
	employee := flag.String("employee", "", "employee UUID (required)")
	shift := flag.String("shift", "", "shift UUID (required)")
	date := flag.String("date", time.Now().AddDate(0, 0, -1).Format("2006-01-02"), "day to sweep (YYYY-MM-DD)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	tenantID, err := uuid.FromString(*tenant)
	if err != nil {
		logger.Fatal("invalid --tenant", zap.Error(err))
	}
	employeeID, err := uuid.FromString(*employee)
	if err != nil {
		logger.Fatal("invalid --employee", zap.Error(err))
	}
	shiftID, err := uuid.FromString(*shift)
	if err != nil {
		logger.Fatal("invalid --shift", zap.Error(err))
	}
	day, err := time.Parse("2006-01-02", *date)
	if err != nil {
		logger.Fatal("invalid --date", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, *dsn)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	svc := service.NewExceptionService(
		postgres.NewPunchRepo(db),
		postgres.NewShiftRepo(db),
		postgres.NewExceptionRepo(db),
		exceptions.New(exceptions.Config{}),
		logger,
	)

	excs, err := svc.RunForDate(ctx, tenantID, employeeID, day, shiftID)
	if err != nil {
		logger.Fatal("sweep failed", zap.Error(err))
	}
	for _, e := range excs {
		logger.Info("exception",
			zap.String("type", string(e.Type)),
			zap.String("severity", e.Severity),
			zap.String("description", e.Description),
		)
	}
	logger.Info("sweep done", zap.String("date", *date), zap.Int("exceptions", len(excs)))
}
