package beanstalk_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/beanstalk"
	"github.com/pior/beanstalk/wire"
)

func Example() {
	ctx := context.Background()

	client, err := beanstalk.Dial(ctx, beanstalk.Config{Host: "localhost", Port: 11300})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Quit()

	if _, err := client.Use(ctx, "emails"); err != nil {
		log.Fatal(err)
	}

	id, _, err := client.Put(ctx, []byte(`{"to":"a@example.com"}`), 1024, 0, time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("inserted %d\n", id)
}

// Workers watch their tubes and loop on reserve.
func Example_worker() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := beanstalk.Dial(ctx, beanstalk.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Quit()

	if _, err := client.Watch(ctx, "emails"); err != nil {
		log.Fatal(err)
	}
	if _, err := client.Ignore(ctx, "default"); err != nil {
		log.Fatal(err)
	}

	for {
		job, err := client.ReserveWithTimeout(ctx, 5*time.Second)
		if wire.IsStatus(err, wire.StatusTimedOut) {
			continue
		}
		if err != nil {
			log.Printf("reserve failed: %v", err)
			return
		}

		if err := process(job); err != nil {
			_ = client.Bury(ctx, job.ID, 1024)
			continue
		}
		_ = client.Delete(ctx, job.ID)
	}
}

func process(job beanstalk.Job) error {
	fmt.Printf("job %d: %s\n", job.ID, job.Body)
	return nil
}

// Pooled clients go back to the pool with KeepAlive, or are dropped with Close.
func ExampleConnectionPool() {
	pool, err := beanstalk.NewConnectionPool(
		beanstalk.Config{Host: "localhost"},
		beanstalk.PoolConfig{
			MaxSize:             8,
			MaxConnIdleTime:     time.Minute,
			HealthCheckInterval: 10 * time.Second,
			NewCircuitBreaker:   beanstalk.NewCircuitBreakerConfig(1, 10*time.Second, 5*time.Second),
		},
	)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	ctx := context.Background()

	client, err := pool.Get(ctx)
	if errors.Is(err, gobreaker.ErrOpenState) {
		log.Printf("server unavailable")
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	if _, _, err := client.Put(ctx, []byte("hello"), 0, 0, time.Minute); err != nil {
		client.Close()
		return
	}
	_ = client.KeepAlive()

	stats := pool.Stats()
	fmt.Printf("%s: %d idle, breaker %s\n", stats.Addr, stats.PoolStats.IdleConns, stats.CircuitBreakerState)
}
