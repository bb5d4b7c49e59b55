package db

import (
	"context"
	"time"
)

const healthTimeout = 5 * time.Second

// PoolStats is a point-in-time view of pool occupancy.
type PoolStats struct {
	IdleConns     int  `json:"idle_conns"`
	AcquiredConns int  `json:"acquired_conns"`
	MaxConns      int  `json:"max_conns"`
	Healthy       bool `json:"healthy"`
}

// CheckHealth verifies the database is reachable through the pool and
// reports occupancy. A failed ping yields Healthy=false along with the
// error.
func CheckHealth(ctx context.Context, pool *Pool) (PoolStats, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	err := WithConn(ctx, pool, func(conn Conn) error {
		return conn.Ping(ctx)
	})

	idle, inUse := pool.Stats()
	stats := PoolStats{
		IdleConns:     idle,
		AcquiredConns: inUse,
		MaxConns:      pool.MaxSize(),
		Healthy:       err == nil,
	}
	return stats, err
}
