package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/netstore/core"
	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/config"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/internal/observability"
	"github.com/signalsfoundry/netstore/internal/session"
	"github.com/signalsfoundry/netstore/model"
)

const usage = `usage: netstore-cli [flags] <command> [args]

commands:
  networks                     list the networks of the store
  list <network> <type> [vl]   list resources of a type, optionally held by a container
  count <network> <type>       count resources of a type
  buses <network> <vl>         print the calculated buses of a voltage level
  open <network> <switch>      open a switch and flush
  close <network> <switch>     close a switch and flush
  delete <network>             delete a network
`

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	addr := flag.String("addr", "", "Store address (overrides config)")
	strategy := flag.String("strategy", "", "Preloading strategy: none, lazy or collection (overrides config)")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall deadline for the command")
	stats := flag.Bool("stats", false, "Print client metrics to stderr after the command")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage); flag.PrintDefaults() }
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Client.Target = *addr
	}
	if *strategy != "" {
		cfg.Client.Strategy = *strategy
	}
	s, err := client.ParseStrategy(cfg.Client.Strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", err)
		os.Exit(2)
	}

	log := cfg.Logging.Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx, _ = logging.EnsureRequestID(ctx)

	conn, err := gateway.Dial(cfg.Client.Target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	metrics, err := observability.NewClientCollector(prometheus.NewRegistry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", err)
		os.Exit(1)
	}
	opts := append(cfg.Client.ClientOptions(), client.WithLogger(log), client.WithMetrics(metrics))
	c, err := client.New(s, gateway.NewGRPCClient(conn, log), opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", err)
		os.Exit(1)
	}

	runErr := run(ctx, c, log, flag.Args(), os.Stdout)
	if *stats {
		if err := metrics.WriteText(os.Stderr); err != nil {
			log.Warn(ctx, "failed to write client metrics", logging.Err(err))
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "netstore-cli: %v\n", runErr)
		os.Exit(1)
	}
}

var errUsage = errors.New("bad usage")

// run executes one command against c and prints its result to out.
func run(ctx context.Context, c client.NetworkStoreClient, log logging.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command\n%s", errUsage, usage)
	}
	cmd, args := args[0], args[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d argument(s)\n%s", errUsage, cmd, n, usage)
		}
		return nil
	}

	switch cmd {
	case "networks":
		infos, err := c.ListNetworks(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%s\t%s\n", info.ID, info.Name)
		}
		return nil

	case "list", "count":
		if err := need(2); err != nil {
			return err
		}
		t, err := model.ParseResourceType(args[1])
		if err != nil {
			return err
		}
		sess, err := session.Open(ctx, c, args[0], session.WithLogger(log))
		if err != nil {
			return err
		}
		defer sess.Close()
		if cmd == "count" {
			n, err := sess.Index().Count(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d\n", n)
			return nil
		}
		var objs []*session.Identifiable
		if len(args) > 2 {
			objs, err = sess.Index().GetByContainer(ctx, t, args[2])
		} else {
			objs, err = sess.Index().GetAll(ctx, t)
		}
		if err != nil {
			return err
		}
		for _, o := range objs {
			attrs, err := model.EncodeAttributes(o.Attributes())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%v\n", o.ID(), attrs)
		}
		return nil

	case "buses":
		if err := need(2); err != nil {
			return err
		}
		sess, err := session.Open(ctx, c, args[0], session.WithLogger(log))
		if err != nil {
			return err
		}
		defer sess.Close()
		return printBuses(ctx, sess, args[1], out)

	case "open", "close":
		if err := need(2); err != nil {
			return err
		}
		sess, err := session.Open(ctx, c, args[0], session.WithLogger(log))
		if err != nil {
			return err
		}
		defer sess.Close()
		sw, found, err := sess.Index().Get(ctx, model.ResourceTypeSwitch, args[1])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: switch %q", session.ErrNotFound, args[1])
		}
		open := cmd == "open"
		if err := sw.Update(ctx, func(a model.Attributes) { a.(*model.SwitchAttributes).Open = open }); err != nil {
			return err
		}
		if err := sess.Flush(ctx); err != nil {
			return err
		}
		log.Info(ctx, "switch state flushed",
			logging.String("network_id", args[0]),
			logging.String("switch_id", sw.ID()),
			logging.Bool("open", open),
		)
		fmt.Fprintf(out, "%s\topen=%t\n", sw.ID(), open)
		return nil

	case "delete":
		if err := need(1); err != nil {
			return err
		}
		sess, err := session.Open(ctx, c, args[0], session.WithLogger(log))
		if err != nil {
			return err
		}
		return sess.Delete(ctx)

	default:
		return fmt.Errorf("%w: unknown command %q\n%s", errUsage, cmd, usage)
	}
}

func printBuses(ctx context.Context, sess *session.Session, vlID string, out io.Writer) error {
	buses, err := sess.CalculatedBuses(ctx, vlID)
	if err != nil {
		return err
	}
	for _, id := range core.SortedBusIDs(buses) {
		bus := buses[id]
		objs, err := sess.BusConnectables(ctx, bus)
		if err != nil {
			return err
		}
		members := make([]string, 0, len(objs))
		for _, o := range objs {
			members = append(members, o.ID())
		}
		fmt.Fprintf(out, "%s\tbbs=%d feeders=%d branches=%d\t%s\n",
			id, bus.BusbarSectionCount(), bus.FeederCount(), bus.BranchCount(), strings.Join(members, ","))
	}
	return nil
}
