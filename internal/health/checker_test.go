package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubChecker struct {
	name  string
	err   error
	delay time.Duration
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(ctx context.Context) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckRunnerReady(t *testing.T) {
	cases := []struct {
		name      string
		checkers  []Checker
		wantReady bool
	}{
		{"all healthy", []Checker{stubChecker{name: "db"}, stubChecker{name: "redis"}}, true},
		{"one down", []Checker{stubChecker{name: "db"}, stubChecker{name: "redis", err: errors.New("down")}}, false},
		{"slow check times out", []Checker{stubChecker{name: "storage", delay: time.Second}}, false},
		{"nil checkers are skipped", []Checker{nil, stubChecker{name: "db"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := NewCheckRunner(50*time.Millisecond, 0, tc.checkers...)
			ready, results := runner.Ready(context.Background())
			if ready != tc.wantReady {
				t.Fatalf("expected ready=%v, got %v (%+v)", tc.wantReady, ready, results)
			}
			if len(results) != len(runner.checkers) {
				t.Fatalf("expected %d results, got %d", len(runner.checkers), len(results))
			}
		})
	}
}

func TestCheckRunnerKeepsCheckerOrder(t *testing.T) {
	runner := NewCheckRunner(time.Second, 0,
		stubChecker{name: "db", delay: 20 * time.Millisecond},
		stubChecker{name: "redis"},
		stubChecker{name: "storage", delay: 10 * time.Millisecond},
	)
	_, results := runner.Ready(context.Background())
	for i, want := range []string{"db", "redis", "storage"} {
		if results[i].Name != want {
			t.Fatalf("result %d: expected %s, got %s", i, want, results[i].Name)
		}
	}
}

func TestCheckRunnerStartupGrace(t *testing.T) {
	runner := NewCheckRunner(200*time.Millisecond, 2*time.Second, stubChecker{name: "db"})
	ready, results := runner.Ready(context.Background())
	if ready {
		t.Fatal("expected unready during grace period")
	}
	if len(results) != 1 || results[0].Name != "startup_grace" {
		t.Fatalf("unexpected grace results: %+v", results)
	}
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewRedisChecker(client)
	if err := checker.Check(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}
	mr.Close()
	if err := checker.Check(context.Background()); err == nil {
		t.Fatal("expected error after redis shutdown")
	}
}

func TestPingChecker(t *testing.T) {
	if NewPingChecker("storage", nil) != nil {
		t.Fatal("expected nil checker for nil pinger")
	}
	checker := NewPingChecker("events", pingFunc(func(context.Context) error { return errors.New("no brokers") }))
	if checker.Name() != "events" {
		t.Fatalf("unexpected name %q", checker.Name())
	}
	if err := checker.Check(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
}
