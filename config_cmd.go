package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivetree/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Set a value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		return printJSON(cc.Stdout, cc.Cfg)
	}

	return config.RenderEffective(cc.Cfg, cc.Stdout)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	section, key, ok := strings.Cut(args[0], ".")
	if !ok || section == "" || key == "" {
		return fmt.Errorf("key %q must be written as section.key", args[0])
	}

	if err := config.SetKey(cc.Cfg.ConfigPath, section, key, args[1]); err != nil {
		return err
	}

	// Reload so a value that breaks validation is reported right away.
	if _, err := config.Load(cc.Cfg.ConfigPath); err != nil {
		return fmt.Errorf("config saved but no longer loads: %w", err)
	}

	cc.Statusf("Set %s in %s.\n", args[0], cc.Cfg.ConfigPath)

	return nil
}
