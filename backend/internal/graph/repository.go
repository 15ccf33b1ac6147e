package graph

import (
	"context"
	"fmt"

	"brewbot/backend/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Repository persists the user -> assistant-thread mapping in Neo4j.
// One thread per user; mappings are never deleted here (retention is an
// external concern).
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewRepository creates a new thread repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

// GetThreadID returns the stored thread id for a user, or an empty
// string when no mapping exists
func (r *Repository) GetThreadID(ctx context.Context, userID string) (string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u:DiscordUser {id: $userID})
		RETURN u.thread_id as thread_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", fmt.Errorf("failed to fetch record: %w", err)
		}
		return "", nil
	}

	record := result.Record()
	threadID, _ := record.Get("thread_id")
	id, ok := threadID.(string)
	if !ok {
		return "", nil
	}

	r.logger.Debug("Retrieved thread mapping",
		zap.String("user_id", userID),
		zap.String("thread_id", id),
	)
	return id, nil
}

// SaveThreadID upserts the thread mapping for a user. Idempotent: the
// user id is the merge key.
func (r *Repository) SaveThreadID(ctx context.Context, userID, threadID string) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (u:DiscordUser {id: $userID})
		SET u.thread_id = $threadID,
		    u.updated_at = datetime()
		RETURN u.thread_id as thread_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":   userID,
		"threadID": threadID,
	})
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("failed to save thread mapping: %w", err)
	}

	r.logger.Info("Saved thread mapping",
		zap.String("user_id", userID),
		zap.String("thread_id", threadID),
	)
	return nil
}
