// Package app builds the command line application shell the carroom binaries
// share: grouped flags, a config file with environment overrides, and live
// reload of the log level.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NamedFlagSetOptions is implemented by each binary's aggregate options.
type NamedFlagSetOptions interface {
	// Flags returns the grouped command line flags.
	Flags() NamedFlagSets

	// Complete fills in defaults that depend on other options.
	Complete() error

	// Validate checks the full option set.
	Validate() error
}

// RunFunc is the application body, invoked once options are complete and
// valid.
type RunFunc func() error

// App is a command line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	cmd         *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects any positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.cmd.Args = cobra.NoArgs
	}
}

// NewApp builds an application with the given name and options.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		cmd:       &cobra.Command{},
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := a.cmd
	cmd.Use = a.name
	cmd.Short = a.shortDesc
	cmd.Long = a.description
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	var configFile string
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file.")

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSet(name))
		}
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if a.options != nil {
			if err := loadConfig(configFile, a.name, cmd.Flags(), a.options); err != nil {
				return err
			}
			if err := a.options.Complete(); err != nil {
				return err
			}
			if err := a.options.Validate(); err != nil {
				return err
			}
		}
		if a.runFunc != nil {
			return a.runFunc()
		}
		return nil
	}
}

// Run executes the application and exits non-zero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", a.name, err)
		os.Exit(1)
	}
}

// Command exposes the underlying cobra command, mainly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
