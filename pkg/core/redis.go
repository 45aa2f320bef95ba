package core

import "github.com/go-redis/redis/v8"

// RedisDB is the interface for the redis connection backing the job queue.
type RedisDB interface {
	// Client exposes redis client interface
	Client() redis.UniversalClient
}
