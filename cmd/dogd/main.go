// Command dogd runs on the front brick and serves its leg set to the controller.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-metrics"

	"ev3-dog/config"
	"ev3-dog/legsim"
	"ev3-dog/middleware"
	"ev3-dog/server"
	"ev3-dog/telemetry"
	"ev3-dog/transport"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
	exitCodeUsage   = 2
)

// Front is the root exposed by dogd.
type Front struct {
	Legs *legsim.LegSet
}

func (f *Front) Connect() error    { return f.Legs.Connect() }
func (f *Front) Disconnect() error { return f.Legs.Disconnect() }

func (f *Front) String() string {
	return "<front " + f.Legs.Name() + ">"
}

type options struct {
	configPath string
	listen     string
	websocket  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	opts, err := parseArgs(args, errOut)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitCodeSuccess
		}
		return exitCodeUsage
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitCodeUsage
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	if opts.websocket != "" {
		cfg.Server.WebSocket = opts.websocket
	}

	logger := cfg.Log.Logger(errOut)
	if err := serve(cfg, logger); err != nil {
		logger.Error("dogd stopped", telemetry.LabelError.L(err))
		return exitCodeError
	}
	return exitCodeSuccess
}

func parseArgs(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("dogd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.listen, "listen", "", "TCP listen address (overrides server.listen)")
	fs.StringVar(&opts.websocket, "websocket", "", "WebSocket listen address (overrides server.websocket)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(errOut, "dogd: unexpected argument %q\n", fs.Arg(0))
		fs.Usage()
		return options{}, fmt.Errorf("unexpected arguments")
	}
	return opts, nil
}

// newServer wires the front leg set and the middleware stack.
func newServer(cfg config.Config, logger *slog.Logger, sink metrics.MetricSink) (*server.Server, error) {
	front := &Front{Legs: legsim.NewFrontLegs(cfg.Legs.TimeScale)}
	svr := server.NewServer(front,
		server.WithLogger(logger),
		server.WithMetricSink(sink),
		server.WithLinkOptions(transport.WithHeartbeat(cfg.Client.Heartbeat)),
	)
	svr.Use(middleware.LoggingMiddleware(logger))
	svr.Use(middleware.MetricsMiddleware(sink))
	if cfg.Server.Rate > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.Server.Rate, cfg.Server.Burst))
	}
	if err := svr.Register("legs", front.Legs); err != nil {
		return nil, err
	}
	return svr, nil
}

func serve(cfg config.Config, logger *slog.Logger) error {
	// SIGUSR1 dumps the collected metrics to stderr.
	sink := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(sink)

	svr, err := newServer(cfg, logger, sink)
	if err != nil {
		return err
	}

	errs := make(chan error, 2)
	var httpSrv *http.Server
	if cfg.Server.WebSocket != "" {
		httpSrv = &http.Server{Addr: cfg.Server.WebSocket, Handler: svr.WebSocketHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving websocket", slog.String("addr", cfg.Server.WebSocket))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}
	if cfg.Server.Listen != "" {
		listener, err := net.Listen("tcp", cfg.Server.Listen)
		if err != nil {
			return err
		}
		go func() {
			logger.Info("serving tcp", slog.String("addr", listener.Addr().String()))
			errs <- svr.Serve(listener)
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err = <-errs:
	}
	if httpSrv != nil {
		httpSrv.Close()
	}
	if serr := svr.Shutdown(); serr != nil && err == nil && !errors.Is(serr, net.ErrClosed) {
		err = serr
	}
	return err
}
