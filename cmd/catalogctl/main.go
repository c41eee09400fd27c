// Command catalogctl is the operator CLI over the embedded catalog:
// schema init, dataset listing/inspection, search, and stats, plus
// glossary management commands the HTTP surface does not expose.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/catalogd/catalogd/internal/catalogerr"
	"github.com/catalogd/catalogd/internal/config"
)

func main() {
	cfg, err := config.FromFileOrEnv(configFileFlag(os.Args[1:]))
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		os.Exit(catalogerr.KindOf(err).ExitCode())
	}
}

// configFileFlag picks the --config value out of the raw argument list
// before cobra's own flag parsing runs, since the config file has to be
// loaded before the command tree (and its flags) can be built.
func configFileFlag(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
	}
	return ""
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and manage a catalog artifact",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "path to a catalogctl config file (YAML/TOML/JSON)")

	root.AddCommand(
		newInitCmd(cfg),
		newListCmd(cfg),
		newShowCmd(cfg),
		newSearchCmd(cfg),
		newStatsCmd(cfg),
		newGlossaryCmd(cfg),
	)
	return root
}

func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err)
	return err
}
