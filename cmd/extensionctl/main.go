// Command extensionctl inspects the extension registry: which names are
// registered for an interface, which ThreadPoolFactory a URL's
// "threadpool" parameter names, and which endpoint a load balancer picks in a
// simulated call. It is
// a debugging aid built as a small cobra command tree.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/datawire/dlib/dlog"

	"github.com/telepresenceio/go-extension/pkg/cache"
	"github.com/telepresenceio/go-extension/pkg/extconfig"
	"github.com/telepresenceio/go-extension/pkg/extension"
	"github.com/telepresenceio/go-extension/pkg/filter"
	"github.com/telepresenceio/go-extension/pkg/loadbalance"
	"github.com/telepresenceio/go-extension/pkg/protocol"
	"github.com/telepresenceio/go-extension/pkg/serializer"
	"github.com/telepresenceio/go-extension/pkg/threadpool"
	"github.com/telepresenceio/go-extension/pkg/transport"
)

// cliLog is extensionctl's own local, human-facing diagnostic logger,
// separate from dlog's context-scoped structured logging used by the
// extension runtime itself.
var cliLog = logrus.New()

// runtimeLogger builds the logrus.Logger dlog.WrapLogrus wraps as the
// context-scoped logger every pkg/extension/pkg/threadpool dlog call uses,
// levelled from GOEXT_LOG_LEVEL the same way the teacher's own
// logging.InitContext reads a configured level into its logrus logger
// before attaching it via dlog.WithLogger.
func runtimeLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func main() {
	ctx := context.Background()
	env, err := extconfig.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load environment: %v\n", err)
		os.Exit(1)
	}
	extconfig.Apply(env)
	ctx = extconfig.WithEnv(ctx, env)
	ctx = dlog.WithLogger(ctx, dlog.WrapLogrus(runtimeLogger(env.LogLevel)))
	extension.InjectionFailureHandler = func(err *extension.InjectionFailedError) {
		dlog.Errorf(ctx, "recoverable injection failure: %v", err)
	}

	cmd := rootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: error: %v\n", cmd.CommandPath(), err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "extensionctl",
		Short:         "Inspect and exercise the extension-loader registry",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				cliLog.SetLevel(logrus.DebugLevel)
			} else {
				cliLog.SetLevel(logrus.WarnLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level CLI diagnostics")
	root.AddCommand(listCommand())
	root.AddCommand(pickCommand())
	root.AddCommand(dispatchCommand())
	root.AddCommand(serveCommand())
	return root
}

// interfaceFlag is a pflag.Value restricting --interface to the known
// extension points this tool can introspect, rejecting anything else at
// flag-parse time instead of at RunE time.
type interfaceFlag string

var _ pflag.Value = (*interfaceFlag)(nil)

var knownInterfaces = []string{
	"loadbalancer", "threadpoolfactory", "protocol", "transport", "serializer", "filter", "cachefactory",
}

func (f *interfaceFlag) String() string { return string(*f) }
func (f *interfaceFlag) Type() string   { return "interface" }
func (f *interfaceFlag) Set(v string) error {
	for _, k := range knownInterfaces {
		if v == k {
			*f = interfaceFlag(v)
			return nil
		}
	}
	return fmt.Errorf("unknown interface %q (want one of %v)", v, knownInterfaces)
}

func listCommand() *cobra.Command {
	iface := interfaceFlag("loadbalancer")
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered extension names for a known interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names, err := supportedNames(string(iface))
			if err != nil {
				return err
			}
			dlog.Infof(ctx, "listing extensions for %s", iface)
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().Var(&iface, "interface", "interface to list, one of: "+fmt.Sprint(knownInterfaces))
	return cmd
}

func supportedNames(iface string) ([]string, error) {
	switch iface {
	case "loadbalancer":
		return extension.For[loadbalance.LoadBalancer]().GetSupported(), nil
	case "threadpoolfactory":
		return extension.For[threadpool.ThreadPoolFactory]().GetSupported(), nil
	case "protocol":
		return extension.For[protocol.Protocol]().GetSupported(), nil
	case "transport":
		return extension.For[transport.Transport]().GetSupported(), nil
	case "serializer":
		return extension.For[serializer.Serializer]().GetSupported(), nil
	case "filter":
		return extension.For[filter.Filter]().GetSupported(), nil
	case "cachefactory":
		return extension.For[cache.CacheFactory]().GetSupported(), nil
	default:
		return nil, fmt.Errorf("unknown interface %q (want one of %v)", iface, knownInterfaces)
	}
}

func pickCommand() *cobra.Command {
	var algo string
	var weights, actives []int
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Simulate one LoadBalancer.Select call over synthetic endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(weights) != len(actives) {
				return fmt.Errorf("--weight and --active must list the same number of endpoints")
			}
			reg := extension.For[loadbalance.LoadBalancer]()
			lb, err := reg.GetOrDefault(algo)
			if err != nil {
				return err
			}
			candidates := make([]loadbalance.Endpoint, len(weights))
			for i := range weights {
				candidates[i] = cliEndpoint{idx: i, weight: weights[i], active: actives[i]}
			}
			cliLog.WithField("algorithm", algo).WithField("candidates", len(candidates)).Debug("resolved load balancer")
			picked, err := lb.Select(candidates, nil, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "picked endpoint %d\n", picked.(cliEndpoint).idx)
			return nil
		},
	}
	cmd.Flags().StringVar(&algo, "algorithm", "", "loadbalancer name, defaults to the interface default")
	cmd.Flags().IntSliceVar(&weights, "weight", nil, "candidate weights, one per endpoint")
	cmd.Flags().IntSliceVar(&actives, "active", nil, "candidate active-call counts, one per endpoint")
	return cmd
}

type cliEndpoint struct {
	idx, weight, active int
}

func (e cliEndpoint) Weight() int      { return e.weight }
func (e cliEndpoint) ActiveCount() int { return e.active }

func dispatchCommand() *cobra.Command {
	var rawURL, threadpoolName string
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Resolve the ThreadPoolFactory named by a URL's threadpool parameter",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := extension.Parse(rawURL)
			if err != nil {
				return fmt.Errorf("parse url: %w", err)
			}
			if threadpoolName != "" {
				u.SetParameter("threadpool", threadpoolName)
			}
			reg := extension.For[threadpool.ThreadPoolFactory]()
			name, _ := u.GetParameter("threadpool")
			if name == "" {
				name = "fixed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "url parameter %q resolves to %q\n", "threadpool", name)
			if _, err := reg.Get(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resolved thread pool factory %q for %s\n", name, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "goext://localhost:0", "URL to resolve parameters from")
	cmd.Flags().StringVar(&threadpoolName, "threadpool", "", "override the url's threadpool parameter")
	return cmd
}
