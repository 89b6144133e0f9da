package beanstalk

import (
	"context"
	"testing"
	"time"

	"github.com/pior/beanstalk/internal/testutils"
)

func BenchmarkPool_Acquire_Creation(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()

			for b.Loop() {
				pool, err := factory(mockConstructor, 1)
				if err != nil {
					b.Fatal(err)
				}

				res, err := pool.Acquire(ctx)
				if err != nil {
					b.Fatal(err)
				}

				res.Destroy()
				pool.Close()
			}
		})
	}
}

func BenchmarkPool_AcquireRelease_Idle(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			pool, err := factory(mockConstructor, 4)
			if err != nil {
				b.Fatal(err)
			}
			defer pool.Close()

			res, err := pool.Acquire(ctx)
			if err != nil {
				b.Fatal(err)
			}
			res.Release()

			for b.Loop() {
				res, err := pool.Acquire(ctx)
				if err != nil {
					b.Fatal(err)
				}
				res.Release()
			}
		})
	}
}

func BenchmarkPool_AcquireRelease_Parallel(b *testing.B) {
	for name, factory := range poolFactories {
		b.Run(name, func(b *testing.B) {
			ctx := context.Background()
			pool, err := factory(mockConstructor, 8)
			if err != nil {
				b.Fatal(err)
			}
			defer pool.Close()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					res, err := pool.Acquire(ctx)
					if err != nil {
						b.Error(err)
						return
					}
					res.Release()
				}
			})
		})
	}
}

func BenchmarkClient_PutDelete(b *testing.B) {
	server := testutils.NewServer(b)
	ctx := context.Background()

	client, err := Dial(ctx, Config{Host: server.Host(), Port: server.Port()})
	if err != nil {
		b.Fatal(err)
	}
	defer client.Quit()

	body := []byte(`{"to":"a@example.com","subject":"hello"}`)

	for b.Loop() {
		id, _, err := client.Put(ctx, body, 0, 0, time.Minute)
		if err != nil {
			b.Fatal(err)
		}
		if err := client.Delete(ctx, id); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkClient_PutReserveDelete(b *testing.B) {
	server := testutils.NewServer(b)
	ctx := context.Background()

	client, err := Dial(ctx, Config{Host: server.Host(), Port: server.Port()})
	if err != nil {
		b.Fatal(err)
	}
	defer client.Quit()

	body := make([]byte, 4096)

	for b.Loop() {
		if _, _, err := client.Put(ctx, body, 0, 0, time.Minute); err != nil {
			b.Fatal(err)
		}
		job, err := client.Reserve(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if err := client.Delete(ctx, job.ID); err != nil {
			b.Fatal(err)
		}
	}
}
