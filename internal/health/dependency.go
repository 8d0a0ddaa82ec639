package health

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Pinger is satisfied by the document store and the event publisher.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func (c pingChecker) Name() string { return c.name }

func (c pingChecker) Check(ctx context.Context) error { return c.ping(ctx) }

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return pingChecker{name: "db", ping: func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return pingChecker{name: "redis", ping: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// NewPingChecker wraps any dependency exposing Ping. A nil pinger yields no check.
func NewPingChecker(name string, p Pinger) Checker {
	if p == nil {
		return nil
	}
	return pingChecker{name: name, ping: func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Join(errors.New(name+" unreachable"), err)
		}
		return nil
	}}
}
