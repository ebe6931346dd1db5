package mongodb

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/trn-tools/trn-cli/internal/config"
	"github.com/trn-tools/trn-cli/pkg/staking"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

var ErrMissingConnectionString = errors.New("MongoDB connection string is not set")

// MongoEventStore connects, inserts and disconnects on every call.
type MongoEventStore struct {
	config *config.MongoDbConfig
	Logger *zap.Logger
}

func NewMongoEventStore(cfg *config.MongoDbConfig, l *zap.Logger) (*MongoEventStore, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrMissingConnectionString
	}
	return &MongoEventStore{
		config: cfg,
		Logger: l,
	}, nil
}

func (s *MongoEventStore) InsertStakeEvent(ctx context.Context, event *staking.StakeEvent) (string, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(s.config.ConnectionString))
	if err != nil {
		return "", errors.Wrap(err, "failed to create MongoDB client")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			s.Logger.Sugar().Warnw("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return "", errors.Wrap(err, "failed to connect to MongoDB")
	}
	s.Logger.Sugar().Infow("Connected to MongoDB",
		zap.String("database", s.config.Database),
		zap.String("collection", s.config.Collection),
	)

	res, err := client.Database(s.config.Database).Collection(s.config.Collection).InsertOne(ctx, event)
	if err != nil {
		return "", errors.Wrapf(err, "failed to insert staking transaction at block '%d'", event.BlockNumber)
	}
	return insertedIdString(res.InsertedID), nil
}

func insertedIdString(id any) string {
	if oid, ok := id.(bson.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", id)
}
