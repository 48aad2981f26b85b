// Command dogctl runs on the controller brick. It talks to dogd on the front brick and
// moves the back legs itself.
//
//	dogctl [options] ping
//	dogctl [options] call <path> [json-arg...]
//	dogctl [options] repr <path>
//	dogctl [options] stand <pct> | sit | reset | paw <left|right> <pct>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"ev3-dog/client"
	"ev3-dog/config"
	"ev3-dog/legsim"
	"ev3-dog/telemetry"
	"ev3-dog/transport"
)

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
	exitCodeUsage   = 2
)

type options struct {
	configPath string
	address    string
	codec      string
	command    string
	args       []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
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
	if opts.address != "" {
		cfg.Client.Address = opts.address
	}
	if opts.codec != "" {
		cfg.Client.Codec = opts.codec
	}
	ct, err := cfg.Client.CodecType()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitCodeUsage
	}

	logger := cfg.Log.Logger(errOut)
	dial := client.Dial("tcp", cfg.Client.Address)
	if cfg.Client.IsWebSocket() {
		dial = client.DialWebSocket(cfg.Client.Address, nil)
	}
	c := client.NewClient(dial,
		client.WithLogger(logger),
		client.WithLinkOptions(transport.WithCodec(ct), transport.WithHeartbeat(cfg.Client.Heartbeat)),
	)
	dog := NewDog(c, legsim.NewBackLegs(cfg.Legs.TimeScale), cfg.Legs.Speed)

	ctx := context.Background()
	if err := dog.Connect(ctx); err != nil {
		logger.Error("cannot reach the front brick", slog.String("addr", cfg.Client.Address), telemetry.LabelError.L(err))
		return exitCodeError
	}
	err = execute(ctx, dog, c, opts, out)
	// Only movement commands leave the dog standing; fold it back down for those.
	if isMovement(opts.command) {
		err = errors.Join(err, dog.Disconnect())
	} else {
		err = errors.Join(err, c.Disconnect())
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return exitCodeError
	}
	return exitCodeSuccess
}

func parseArgs(args []string, errOut io.Writer) (options, error) {
	fs := flag.NewFlagSet("dogctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.address, "addr", "", "front brick address, host:port or ws:// URL (overrides client.address)")
	fs.StringVar(&opts.codec, "codec", "", "json, binary or proto (overrides client.codec)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: dogctl [options] ping | call <path> [json-arg...] | repr <path> | stand <pct> | sit | reset | paw <side> <pct>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return options{}, errors.New("command required")
	}
	opts.command, opts.args = fs.Arg(0), fs.Args()[1:]

	want := map[string]int{"ping": 0, "repr": 1, "stand": 1, "sit": 0, "reset": 0, "paw": 2}
	n, known := want[opts.command]
	switch {
	case opts.command == "call":
		if len(opts.args) < 1 {
			fmt.Fprintln(errOut, "dogctl: call needs a path")
			return options{}, errors.New("missing path")
		}
	case !known:
		fmt.Fprintf(errOut, "dogctl: unknown command %q\n", opts.command)
		return options{}, errors.New("unknown command")
	case len(opts.args) != n:
		fmt.Fprintf(errOut, "dogctl: %s takes %d arguments\n", opts.command, n)
		return options{}, errors.New("wrong argument count")
	}
	return opts, nil
}

func isMovement(command string) bool {
	switch command {
	case "stand", "sit", "reset", "paw":
		return true
	}
	return false
}

func execute(ctx context.Context, dog *Dog, c *client.Client, opts options, out io.Writer) error {
	switch opts.command {
	case "ping":
		if err := c.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "PONG")
	case "call":
		proxy := proxyFor(c, opts.args[0])
		args := make([]any, 0, len(opts.args)-1)
		for _, raw := range opts.args[1:] {
			args = append(args, parseValue(raw))
		}
		v, err := proxy.CallContext(ctx, args...)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(encoded))
	case "repr":
		text, err := proxyFor(c, opts.args[0]).Repr(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	case "stand":
		pct, err := strconv.ParseFloat(opts.args[0], 64)
		if err != nil {
			return fmt.Errorf("stand: %w", err)
		}
		return dog.StandUp(pct)
	case "sit":
		return dog.Sit()
	case "reset":
		return dog.Reset()
	case "paw":
		pct, err := strconv.ParseFloat(opts.args[1], 64)
		if err != nil {
			return fmt.Errorf("paw: %w", err)
		}
		return dog.LiftPaw(opts.args[0], pct)
	}
	return nil
}

func proxyFor(c *client.Client, path string) client.Proxy {
	segs := strings.Split(path, ".")
	p := c.Attr(segs[0])
	for _, seg := range segs[1:] {
		p = p.Attr(seg)
	}
	return p
}

// parseValue reads a command-line argument as JSON, falling back to a plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
