package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"compassdev/logger"

	_ "github.com/lib/pq"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type DatabaseConnectProps struct {
	Logger *logger.LogMiddleware
}

type Database struct {
	Queries
	logger *logger.LogMiddleware
}

func Connect(ctx context.Context, args DatabaseConnectProps) *Database {
	tracer := otel.Tracer("postgres/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	connectRetries := 5
	var conn *sql.DB
	var err error
	var connStr string

	logger := args.Logger.Logger(ctx)

	for connectRetries > 0 {
		conn, err, connStr = getConnection(ctx)
		if err == nil {
			logger.Info("[Postgres] Database client started")
			break
		}
		connectRetries -= 1
		sleepTime := 5
		logger.Error(
			"[Postgres] Could not connect to Postgres. Retrying after sleeping.",
			zap.Error(err),
			zap.Int("Retries Left", connectRetries),
			zap.Int("Sleep Time", sleepTime),
			zap.String("Connection String", connStr))
		time.Sleep(time.Second * time.Duration(sleepTime))
	}

	if connectRetries <= 0 {
		logger.Error("[Postgres] Failed to Connect to Postgres")
		span.RecordError(fmt.Errorf("failed to connect to Postgres"))
		os.Exit(1)
	}

	queries := New(conn)
	return &Database{Queries: *queries, logger: args.Logger}
}

func getConnection(ctx context.Context) (*sql.DB, error, string) {
	tracer := otel.Tracer("postgres/getConnection")
	_, span := tracer.Start(ctx, "getConnection")
	defer span.End()

	host := os.Getenv("POSTGRES_DB_HOST")
	port := os.Getenv("POSTGRES_DB_PORT")
	user := os.Getenv("POSTGRES_DB_USER")
	password := os.Getenv("POSTGRES_DB_PASS")
	dbname := os.Getenv("POSTGRES_DB_NAME")

	sslMode := "disable"

	postgresqlDbInfo := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslMode,
	)

	db, err := sql.Open("postgres", postgresqlDbInfo)
	if err != nil {
		span.RecordError(err)
		return nil, err, postgresqlDbInfo
	}
	err = db.Ping()
	if err != nil {
		span.RecordError(err)
		return nil, err, postgresqlDbInfo
	}

	return db, nil, ""
}

type StartInterviewProps struct {
	OwnerID string
}

// StartInterview creates a fresh session at phase=questions, index=1.
func (d *Database) StartInterview(ctx context.Context, args StartInterviewProps) (*InterviewSession, error) {
	tracer := otel.Tracer("postgres/StartInterview")
	ctx, span := tracer.Start(ctx, "StartInterview")
	defer span.End()

	session, err := d.Queries.CreateSession(ctx, args.OwnerID)
	if err != nil {
		d.logger.Logger(ctx).Error(
			"[Postgres] Could not create interview session",
			zap.Error(err),
			zap.String("owner_id", args.OwnerID),
		)
		span.RecordError(err)
		return nil, fmt.Errorf("could not create interview session")
	}

	return &session, nil
}

type FinalizeSessionProps struct {
	SessionID int64
	Statement string
}

// FinalizeSession marks a session completed and stores the derived statement.
// Safe to call repeatedly; a session that is already completed keeps its
// original statement.
func (d *Database) FinalizeSession(ctx context.Context, args FinalizeSessionProps) error {
	tracer := otel.Tracer("postgres/FinalizeSession")
	ctx, span := tracer.Start(ctx, "FinalizeSession")
	defer span.End()

	err := d.Queries.CompleteSession(ctx, CompleteSessionParams{
		ID:        args.SessionID,
		Statement: args.Statement,
	})
	if err != nil {
		d.logger.Logger(ctx).Error(
			"[Postgres] Could not finalize session",
			zap.Error(err),
			zap.Int64("session_id", args.SessionID),
		)
		span.RecordError(err)
		return fmt.Errorf("could not finalize session")
	}

	return nil
}
