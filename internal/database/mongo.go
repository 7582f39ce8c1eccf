package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/config"
)

// ServerSelectionTimeout bounds how long a request waits for a reachable
// server before failing with an unavailable error.
const ServerSelectionTimeout = 5 * time.Second

// Mongo is a connected client and its database handle.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo dials MongoDB and pings it. The URI is logged with the
// credentials redacted.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*Mongo, error) {
	start := time.Now()
	log.Info("mongo: connecting", zap.String("uri", RedactURI(cfg.URI)), zap.String("db", cfg.Database))

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(ServerSelectionTimeout)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(dctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info("mongo: connected", zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return &Mongo{Client: client, Database: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// RedactURI masks the user info of a connection string.
func RedactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
