package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/pior/beanstalk"
	"github.com/pior/beanstalk/internal/env"
)

// options are the persistent flags. They override the environment.
type options struct {
	host       string
	port       int
	timeout    time.Duration
	configFile string
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "beanstalk-cli",
		Short: "Talk to a beanstalkd server",
		Long: `Talk to a beanstalkd server

Each invocation opens one connection, runs one command and quits.
Connection settings come from BEANSTALK_CONFIG (TOML file), then
BEANSTALK_HOST, BEANSTALK_PORT and BEANSTALK_TIMEOUT, then the flags.

Usage
	beanstalk-cli put --tube emails '{"to":"a@example.com"}' --json
	beanstalk-cli reserve --watch emails --timeout 5s --then delete
	beanstalk-cli peek buried --tube emails
`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.host, "host", "a", "", "Server host (default localhost)")
	flags.IntVarP(&opts.port, "port", "p", 0, "Server port (default 11300)")
	flags.DurationVar(&opts.timeout, "io-timeout", 0, "Timeout of each exchange (default 10s)")
	flags.StringVarP(&opts.configFile, "config", "c", "", "TOML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")

	cmd.AddCommand(
		newPutCmd(opts),
		newReserveCmd(opts),
		newJobCmd(opts, "delete", "Delete a job", func(ctx context.Context, c *beanstalk.Client, id uint64) error {
			return c.Delete(ctx, id)
		}),
		newReleaseCmd(opts),
		newBuryCmd(opts),
		newJobCmd(opts, "touch", "Touch a reserved job", func(ctx context.Context, c *beanstalk.Client, id uint64) error {
			return c.Touch(ctx, id)
		}),
		newJobCmd(opts, "kick-job", "Kick a buried or delayed job", func(ctx context.Context, c *beanstalk.Client, id uint64) error {
			return c.KickJob(ctx, id)
		}),
		newKickCmd(opts),
		newPeekCmd(opts),
		newStatsCmd(opts),
		newStatsJobCmd(opts),
		newStatsTubeCmd(opts),
		newListTubesCmd(opts),
		newListTubesWatchedCmd(opts),
		newListTubeUsedCmd(opts),
		newPauseTubeCmd(opts),
	)

	return cmd
}

// session is what a subcommand runs with.
type session struct {
	client *beanstalk.Client
	log    *zap.Logger
	out    *printer
}

// run connects, calls fn and quits.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if o.configFile != "" {
		conf.File = o.configFile
	}
	if o.logLevel != "" {
		conf.LogLevel = o.logLevel
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	out, err := newPrinter(cmd.OutOrStdout(), o.output)
	if err != nil {
		return err
	}

	clientConfig, err := conf.ClientConfig()
	if err != nil {
		return err
	}
	if o.host != "" {
		clientConfig.Host = o.host
	}
	if o.port != 0 {
		clientConfig.Port = o.port
	}
	if o.timeout != 0 {
		clientConfig.Timeout = o.timeout
	}
	clientConfig.Logger = log

	client, err := beanstalk.Dial(ctx, clientConfig)
	if err != nil {
		log.Error("Connection failed", zap.String("addr", clientConfig.Addr()), zap.Error(err))
		return err
	}
	defer client.Quit()

	log.Debug("Connected", zap.String("addr", clientConfig.Addr()))

	return fn(ctx, &session{client: client, log: log, out: out})
}

// printer writes results as text lines or as one JSON object per result.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "text":
		return &printer{w: w}, nil
	case "json":
		return &printer{w: w, json: true}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// emit prints text, or in JSON mode an object built from the key/value pairs.
func (p *printer) emit(text string, kv ...any) error {
	if !p.json {
		_, err := fmt.Fprintln(p.w, text)
		return err
	}

	doc := []byte("{}")
	for i := 0; i+1 < len(kv); i += 2 {
		var err error
		doc, err = sjson.SetBytes(doc, kv[i].(string), kv[i+1])
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(p.w, string(doc))
	return err
}
