// Package redis provides Redis-backed storage for checkpoint chains and
// intermediate writes, using go-redis/v9.
//
// Record values live under plain string keys. A single sorted set with zero
// scores mirrors every key, so the backend's ordered prefix scans map onto
// ZRANGEBYLEX. SETNX supplies the atomic compare-and-insert.
//
// Redis persistence is whatever the server is configured for (RDB, AOF, or
// neither); pick this backend when the deployment already operates Redis
// with the durability it needs.
//
// # Basic Usage
//
//	import (
//		"github.com/smallnest/checkpointgo/checkpoint"
//		checkpointredis "github.com/smallnest/checkpointgo/checkpoint/redis"
//	)
//
//	backend := checkpointredis.New(checkpointredis.Options{
//		Addr:   "localhost:6379",
//		Prefix: "myapp:", // Optional key prefix
//	})
//	defer backend.Close()
//
//	store := checkpoint.New(backend)
package redis
