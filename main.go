package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nconklindev/labsheets/internal/config"
	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries what every command needs once the root command has set up.
type app struct {
	cfg     *config.Config
	layout  layout.Layout
	logger  *slog.Logger
	logFile io.Closer
	runID   uuid.UUID

	layoutFile string
	procedure  string
	strict     bool
}

func main() {
	a := &app{}
	rootCmd := newRootCmd(a)
	err := rootCmd.Execute()
	if a.logFile != nil {
		a.logFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labsheets",
		Short:         "Read and write the lab's range-based Excel workbooks",
		Version:       fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Name() == "browse")
		},
	}
	rootCmd.SetVersionTemplate("labsheets {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.layoutFile, "layout", "", "YAML layout overriding the built-in regions (default $LABSHEETS_LAYOUT_FILE)")
	rootCmd.PersistentFlags().StringVar(&a.procedure, "procedure", "", "Procedure type bound to {procedure} sheet names")
	rootCmd.PersistentFlags().BoolVar(&a.strict, "strict", false, "Fail on rows that cannot be converted instead of skipping them")

	rootCmd.AddCommand(
		newParseCmd(a),
		newSubmissionCmd(a),
		newProcedureCmd(a),
		newPCRCmd(a),
		newCopyCmd(a),
		newInspectCmd(a),
		newRegionsCmd(a),
		newBrowseCmd(a),
	)
	return rootCmd
}

// setup loads configuration, logging and the layout. The browser owns the terminal,
// so its logs are dropped unless a log file is configured.
func (a *app) setup(quiet bool) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	a.cfg = cfg

	var w io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		w = f
	}
	a.runID = uuid.New()
	if quiet && cfg.Logging.File == "" {
		a.logger = logging.Discard()
	} else {
		a.logger = logging.Setup(cfg.Logging.Level, cfg.Logging.Format, w).With("run_id", a.runID.String())
	}

	path := a.layoutFile
	if path == "" {
		path = cfg.Layout.File
	}
	l, err := layout.Load(path)
	if err != nil {
		return err
	}
	if a.procedure != "" {
		l = l.Bind(map[string]string{layout.ProcedureVar: a.procedure})
	}
	a.layout = l
	a.logger.Debug("configured", "layout", path, "regions", len(l.Regions), "version", version)
	return nil
}
