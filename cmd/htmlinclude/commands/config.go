package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/livefir/htmlinclude/internal/config"
)

func configCmd(e *env) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Manage the " + config.ConfigFileName + " file",
	}
	c.AddCommand(configInitCmd(e), configShowCmd(e), configValidateCmd(e))
	return c
}

func (e *env) configFile() string {
	if e.configPath != "" {
		return e.configPath
	}
	return config.ConfigFileName
}

func configInitCmd(e *env) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := e.configFile()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("wrote"), path)
			return nil
		},
	}

	c.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return c
}

func configShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), e.cfg.String())
			return nil
		},
	}
}

func configValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("OK"))
			return nil
		},
	}
}
