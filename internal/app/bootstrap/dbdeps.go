// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/roomhub/internal/app/realtime"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_url is blank.
	Redis *redis.Client

	// Hub is created in ConnectDB so BuildHandler and Shutdown share it.
	Hub *realtime.Hub
}
