package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	. "github.com/warpfork/go-errcat"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/polydawn/courier"
	"github.com/polydawn/courier/catalog/ddfs"
	"github.com/polydawn/courier/config"
	"github.com/polydawn/courier/dirindex"
	"github.com/polydawn/courier/locator"
)

/*
	Output serialization formats
*/
const (
	FmtJson = "json"
	FmtDumb = "dumb"
)

type baseCLI struct {
	Format         string        // Output api format, eg. json
	ProgressEnable bool          // Emit log lines to stderr yes/no
	Timeout        time.Duration // Timeout duration eg. "60s"
	ConfigFile     string        // Settings file; overrides COURIER_CONFIG
	Master         string        // Overrides the settings' master address
	Port           string        // Overrides the settings' control port
	Proxy          string        // Overrides the settings' proxy address
	Locator        string        // Subject of the single-locator commands
	SplitCLI       struct {
		Local bool   // Treat every platform locator as local
		Host  string // Name of the node we're on
	}
	ExpandCLI struct {
		Inputs    []string // Input locators; comma-separated ones are replicas
		Partition string   // Only this partition, if set
		Flat      bool     // One url per line instead of one group per line
	}
}

func configureSplit(cli *baseCLI, appSplit *kingpin.CmdClause) {
	appSplit.Arg("locator", "Locator to split").
		Required().
		StringVar(&cli.Locator)
	appSplit.Flag("local", "Treat platform locators as naming this node").
		BoolVar(&cli.SplitCLI.Local)
	appSplit.Flag("host", "Name of this node").
		StringVar(&cli.SplitCLI.Host)
}

func configureExpand(cli *baseCLI, appExpand *kingpin.CmdClause) {
	appExpand.Arg("inputs", "Input locators (comma-separate replicas of the same data)").
		Required().
		StringsVar(&cli.ExpandCLI.Inputs)
	appExpand.Flag("partition", "Only expand this partition").
		StringVar(&cli.ExpandCLI.Partition)
	appExpand.Flag("flat", "Print one url per line").
		BoolVar(&cli.ExpandCLI.Flat)
}

/*
	Blocks until a sigint is received or ctx ends, then calls cancel.
*/
func CancelOnInterrupt(ctx context.Context, cancel context.CancelFunc) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer signal.Stop(signalChan)
	select {
	case <-signalChan:
		cancel()
	case <-ctx.Done():
	}
}

func main() {
	ctx := context.Background()
	exitCode := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(int(exitCode))
}

func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) courier.ExitCode {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go CancelOnInterrupt(ctx, cancel)

	cli := baseCLI{}

	app := kingpin.New("courier", "Locator resolution and input expansion for disco jobs")
	app.HelpFlag.Short('h')

	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	app.Flag("format", "Output api format").
		Default(FmtDumb).
		EnumVar(&cli.Format, FmtJson, FmtDumb)
	app.Flag("progress", "Emit log lines to stderr").
		BoolVar(&cli.ProgressEnable)
	app.Flag("timeout", "Timeout for command").
		DurationVar(&cli.Timeout)
	app.Flag("config", "Settings file (default: $COURIER_CONFIG)").
		StringVar(&cli.ConfigFile)
	app.Flag("master", "Master address (default: $DISCO_MASTER)").
		StringVar(&cli.Master)
	app.Flag("port", "Control port (default: $DISCO_PORT)").
		StringVar(&cli.Port)
	app.Flag("proxy", "Proxy address (default: $DISCO_PROXY)").
		StringVar(&cli.Proxy)

	appResolve := app.Command("resolve", "resolve a locator to a fetchable url")
	appResolve.Arg("locator", "Locator to resolve").Required().StringVar(&cli.Locator)

	appSplit := app.Command("split", "split a locator into scheme, authority, and path")
	configureSplit(&cli, appSplit)

	appProxy := app.Command("proxy", "route a locator through the proxy")
	appProxy.Arg("locator", "Locator to proxy").Required().StringVar(&cli.Locator)

	appToken := app.Command("token", "print the access token embedded in a locator")
	appToken.Arg("locator", "Locator to inspect").Required().StringVar(&cli.Locator)

	appJobName := app.Command("jobname", "print the job name from a job result locator")
	appJobName.Arg("locator", "Result locator").Required().StringVar(&cli.Locator)

	appExpand := app.Command("expand", "expand job inputs into url groups")
	configureExpand(&cli, appExpand)

	var termErr error
	app.Terminate(func(status int) {
		termErr = fmt.Errorf("parsing error: %d\n", status)
	})
	cmd, err := app.Parse(args[1:])
	if err != nil {
		fmt.Fprintln(stderr, err)
		return courier.ExitUsage
	}
	if termErr != nil {
		fmt.Fprintln(stderr, termErr)
		return courier.ExitUsage
	}

	settings, err := loadSettings(cli)
	if err != nil {
		return SerializeResult(cli.Format, nil, err, stdout, stderr)
	}
	if cli.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}
	mon, stopLogs := startMonitor(cli.ProgressEnable, stderr)
	defer stopLogs()

	resolver := locator.NewResolver(settings)
	var value interface{}
	switch cmd {
	case appResolve.FullCommand():
		value, err = resolver.Resolve(cli.Locator)
	case appSplit.FullCommand():
		value, err = executeSplit(resolver, cli)
	case appProxy.FullCommand():
		value, err = resolver.Proxied(cli.Locator)
	case appToken.FullCommand():
		value, err = executeToken(cli)
	case appJobName.FullCommand():
		value, err = resolver.JobName(cli.Locator)
	case appExpand.FullCommand():
		value, err = executeExpand(ctx, resolver, cli, mon)
	default:
		err = Errorf(courier.ErrUsage, "unknown command %q", cmd)
	}
	stopLogs()
	return SerializeResult(cli.Format, value, err, stdout, stderr)
}

// Settings flags win over the environment and the settings file.
func loadSettings(cli baseCLI) (config.Settings, error) {
	return config.Load(cli.ConfigFile, os.Getenv, config.Settings{
		MasterAddress: cli.Master,
		ControlPort:   cli.Port,
		ProxyAddress:  cli.Proxy,
	})
}

/*
	Returns a Monitor whose log events are printed to stderr (or discarded,
	if not enabled), and a func that flushes and stops it.  The stop func
	is safe to call more than once.
*/
func startMonitor(enabled bool, stderr io.Writer) (courier.Monitor, func()) {
	if !enabled {
		return courier.Monitor{}, func() {}
	}
	ch := make(chan courier.Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if ev.Log == nil {
				continue
			}
			fmt.Fprintf(stderr, "%s %-5s %s\n", ev.Log.Time.Format(time.RFC3339), ev.Log.Level, ev.Log.Msg)
		}
	}()
	stopped := false
	return courier.Monitor{Chan: ch}, func() {
		if stopped {
			return
		}
		stopped = true
		close(ch)
		<-done
	}
}

func executeSplit(resolver *locator.Resolver, cli baseCLI) (map[string]string, error) {
	l, err := resolver.Split(cli.Locator, locator.Here{
		Local: cli.SplitCLI.Local,
		Host:  cli.SplitCLI.Host,
	})
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"scheme":    string(l.Scheme),
		"authority": l.Authority.String(),
		"path":      l.Path,
	}, nil
}

func executeToken(cli baseCLI) (string, error) {
	token, ok := locator.ExtractToken(cli.Locator)
	if !ok {
		return "", Errorf(courier.ErrUsage, "locator %q carries no token", cli.Locator)
	}
	return token, nil
}

func executeExpand(ctx context.Context, resolver *locator.Resolver, cli baseCLI, mon courier.Monitor) (interface{}, error) {
	tp := demuxTransport()
	x := dirindex.NewExpander(resolver, tp, ddfs.NewClient(resolver, tp, mon), mon)
	inputs := make([]dirindex.Input, len(cli.ExpandCLI.Inputs))
	for i, s := range cli.ExpandCLI.Inputs {
		inputs[i] = dirindex.ParseInput(s)
	}
	filter := dirindex.AnyPartition
	if cli.ExpandCLI.Partition != "" {
		filter = dirindex.OnlyPartition(cli.ExpandCLI.Partition)
	}
	if cli.ExpandCLI.Flat {
		return x.FlattenInputs(ctx, inputs, filter)
	}
	return x.ExpandAll(ctx, inputs, filter)
}

/*
	Write the result in the requested format, and pick the exit code.

	Json mode always writes one result object to stdout, error or not.
	Dumb mode writes the value to stdout, or the error to stderr.
*/
func SerializeResult(format string, value interface{}, resultErr error, stdout io.Writer, stderr io.Writer) courier.ExitCode {
	result := &courier.Event_Result{}
	if resultErr == nil {
		result.Value = value
	}
	result.SetError(resultErr)
	switch format {
	case FmtJson:
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, courier.Atlas)
		err := marshaller.Marshal(result)
		if err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		if resultErr != nil {
			fmt.Fprintln(stderr, resultErr)
		} else {
			writeDumb(stdout, value)
		}
	default:
		panic(fmt.Errorf("courier: invalid format %s", format))
	}
	if result.Error == nil {
		return courier.ExitSuccess
	}
	return courier.ExitCodeForCategory(result.Error.Category)
}

func writeDumb(w io.Writer, value interface{}) {
	switch v := value.(type) {
	case string:
		fmt.Fprintln(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case [][]string:
		for _, group := range v {
			fmt.Fprintln(w, strings.Join(group, " "))
		}
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s=%s\n", k, v[k])
		}
	default:
		fmt.Fprintln(w, v)
	}
}
