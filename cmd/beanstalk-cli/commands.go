package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pior/beanstalk"
)

func newPutCmd(opts *options) *cobra.Command {
	var (
		tube     string
		pri      uint32
		delay    time.Duration
		ttr      time.Duration
		jsonBody bool
	)

	cmd := &cobra.Command{
		Use:   "put [body]",
		Short: "Put a job, body from the argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if len(args) == 1 {
				body = []byte(args[0])
			} else {
				var err error
				if body, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			if jsonBody && !gjson.ValidBytes(body) {
				return errors.New("body is not valid JSON")
			}

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := useTube(ctx, s, tube); err != nil {
					return err
				}

				id, buried, err := s.client.Put(ctx, body, pri, delay, ttr)
				if err != nil {
					return err
				}
				if buried {
					s.log.Warn("Job buried on insert", zap.Uint64("id", id))
				}

				return s.out.emit(fmt.Sprintf("inserted %d", id), "id", id, "buried", buried)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&tube, "tube", "t", "", "Tube to put the job in")
	flags.Uint32Var(&pri, "pri", 1024, "Priority, 0 is the most urgent")
	flags.DurationVar(&delay, "delay", 0, "Delay before the job is ready")
	flags.DurationVar(&ttr, "ttr", time.Minute, "Time to run")
	flags.BoolVar(&jsonBody, "json", false, "Require the body to be valid JSON")

	return cmd
}

func newReserveCmd(opts *options) *cobra.Command {
	var (
		watch   []string
		timeout time.Duration
		then    string
		field   string
	)

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a job from the watched tubes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch then {
			case "", "release", "bury", "delete":
			default:
				return fmt.Errorf("unknown --then action %q", then)
			}

			return opts.run(cmd, func(ctx context.Context, s *session) error {
				for _, tube := range watch {
					if _, err := s.client.Watch(ctx, tube); err != nil {
						return err
					}
				}
				if len(watch) > 0 && !slices.Contains(watch, "default") {
					if _, err := s.client.Ignore(ctx, "default"); err != nil {
						return err
					}
				}

				var job beanstalk.Job
				var err error
				if cmd.Flags().Changed("timeout") {
					job, err = s.client.ReserveWithTimeout(ctx, timeout)
				} else {
					job, err = s.client.Reserve(ctx)
				}
				if err != nil {
					return err
				}

				if err := printJob(s.out, job, field); err != nil {
					return err
				}

				switch then {
				case "release":
					return s.client.Release(ctx, job.ID, 1024, 0)
				case "bury":
					return s.client.Bury(ctx, job.ID, 1024)
				case "delete":
					return s.client.Delete(ctx, job.ID)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&watch, "watch", "w", nil, "Tubes to watch instead of default")
	flags.DurationVar(&timeout, "timeout", 0, "Wait at most this long for a job (whole seconds)")
	flags.StringVar(&then, "then", "", "Action after printing the job: release, bury or delete")
	flags.StringVarP(&field, "field", "f", "", "Print only this gjson path of a JSON body")

	return cmd
}

func newReleaseCmd(opts *options) *cobra.Command {
	var (
		pri   uint32
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Release a job reserved on this connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.client.Release(ctx, id, pri, delay); err != nil {
					return err
				}
				return s.out.emit("released", "id", id)
			})
		},
	}

	cmd.Flags().Uint32Var(&pri, "pri", 1024, "New priority")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay before the job is ready again")
	return cmd
}

func newBuryCmd(opts *options) *cobra.Command {
	var pri uint32

	cmd := &cobra.Command{
		Use:   "bury <id>",
		Short: "Bury a job reserved on this connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.client.Bury(ctx, id, pri); err != nil {
					return err
				}
				return s.out.emit("buried", "id", id)
			})
		},
	}

	cmd.Flags().Uint32Var(&pri, "pri", 1024, "New priority")
	return cmd
}

// newJobCmd builds a command taking a single job id.
func newJobCmd(opts *options, name, short string, fn func(ctx context.Context, c *beanstalk.Client, id uint64) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := fn(ctx, s.client, id); err != nil {
					return err
				}
				return s.out.emit("ok", "id", id, "command", name)
			})
		},
	}
}

func newKickCmd(opts *options) *cobra.Command {
	var tube string

	cmd := &cobra.Command{
		Use:   "kick <bound>",
		Short: "Kick up to bound buried jobs, or delayed jobs when none is buried",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bound, err := strconv.Atoi(args[0])
			if err != nil || bound < 0 {
				return fmt.Errorf("invalid bound %q", args[0])
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := useTube(ctx, s, tube); err != nil {
					return err
				}
				kicked, err := s.client.Kick(ctx, bound)
				if err != nil {
					return err
				}
				return s.out.emit(fmt.Sprintf("kicked %d", kicked), "kicked", kicked)
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to kick jobs in")
	return cmd
}

func newPeekCmd(opts *options) *cobra.Command {
	var (
		tube  string
		field string
	)

	cmd := &cobra.Command{
		Use:   "peek <id|ready|delayed|buried>",
		Short: "Show a job by id, or the next job of the used tube in a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := useTube(ctx, s, tube); err != nil {
					return err
				}

				job, err := s.client.PeekArg(ctx, args[0])
				if err != nil {
					return err
				}
				return printJob(s.out, job, field)
			})
		},
	}

	cmd.Flags().StringVarP(&tube, "tube", "t", "", "Tube to peek in")
	cmd.Flags().StringVarP(&field, "field", "f", "", "Print only this gjson path of a JSON body")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show server statistics (YAML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				return emitYAML(s.out, func() ([]byte, error) { return s.client.Stats(ctx) })
			})
		},
	}
}

func newStatsJobCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats-job <id>",
		Short: "Show job statistics (YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				return emitYAML(s.out, func() ([]byte, error) { return s.client.StatsJob(ctx, id) })
			})
		},
	}
}

func newStatsTubeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats-tube <tube>",
		Short: "Show tube statistics (YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				return emitYAML(s.out, func() ([]byte, error) { return s.client.StatsTube(ctx, args[0]) })
			})
		},
	}
}

func newListTubesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tubes",
		Short: "List existing tubes (YAML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				return emitYAML(s.out, func() ([]byte, error) { return s.client.ListTubes(ctx) })
			})
		},
	}
}

func newListTubesWatchedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tubes-watched",
		Short: "List the tubes watched by a new connection (YAML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				return emitYAML(s.out, func() ([]byte, error) { return s.client.ListTubesWatched(ctx) })
			})
		},
	}
}

func newListTubeUsedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list-tube-used",
		Short: "Show the tube used by a new connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				tube, err := s.client.ListTubeUsed(ctx)
				if err != nil {
					return err
				}
				return s.out.emit(tube, "tube", tube)
			})
		},
	}
}

func newPauseTubeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pause-tube <tube> <delay>",
		Short: "Pause reservations from a tube, delay like 30s or 5m",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delay, err := time.ParseDuration(args[1])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.client.PauseTube(ctx, args[0], delay); err != nil {
					return err
				}
				return s.out.emit("paused", "tube", args[0], "delay", int64(delay/time.Second))
			})
		},
	}
}

func useTube(ctx context.Context, s *session, tube string) error {
	if tube == "" {
		return nil
	}
	_, err := s.client.Use(ctx, tube)
	return err
}

func printJob(out *printer, job beanstalk.Job, field string) error {
	body := string(job.Body)
	if field != "" {
		if !gjson.ValidBytes(job.Body) {
			return fmt.Errorf("job %d: body is not valid JSON", job.ID)
		}
		body = gjson.GetBytes(job.Body, field).String()
	}

	return out.emit(fmt.Sprintf("id: %d\n%s", job.ID, body), "id", job.ID, "body", body)
}

func emitYAML(out *printer, fetch func() ([]byte, error)) error {
	data, err := fetch()
	if err != nil {
		return err
	}
	return out.emit(string(data), "yaml", string(data))
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}
