// Command export_data exports PhysioNet 2023 challenge features and
// recordings to per-patient CSV files.
//
// Usage:
//
//	export_data <data_in_folder> <data_out_folder> [n]
//
// n limits the export to the first n patients in discovery order.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"icarecli/internal/app"
	"icarecli/internal/config"
	apperrors "icarecli/internal/errors"
	"icarecli/internal/infrastructure"
	"icarecli/pkg/contracts"
)

const shutdownTimeout = 5 * time.Second

// negativeInteger matches an operand such as the limit "-1", which the flag
// parser would otherwise read as a shorthand flag
var negativeInteger = regexp.MustCompile(`^-[0-9]+$`)

// flags holds the command line overrides of the configuration
type flags struct {
	configFile   string
	dirPrefix    string
	qualityScore string
	workbook     string
	metricsFile  string
	traceFile    string
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(operandsLast(cmd.Flags(), args))

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if apperrors.ExitCode(err) == apperrors.ExitUsage {
			fmt.Fprint(stderr, cmd.UsageString())
		}
	}
	return apperrors.ExitCode(err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   config.ExportCommand + " <data_in_folder> <data_out_folder> [n]",
		Short: "Export challenge features and recordings to CSV",
		Long: `Export the features and recordings of PhysioNet 2023 challenge patients.

For every patient folder in data_in_folder a directory is written to
data_out_folder containing patient_<id>.csv, recordings_summary_<id>.csv and
one PSD matrix file per frequency band. n limits the export to the first n
patients; it defaults to all of them.`,
		Version:       contracts.GetFullVersionString(),
		Args:          usageArgs(2, 3),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.NewUsageError(err.Error())
	})

	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.dirPrefix, "dir-prefix", "", "prefix for patient output directories, e.g. "+config.ChallengeDirPrefix)
	fs.StringVar(&f.qualityScore, "quality-score", "", "quality score placement: append | file | omit")
	fs.StringVar(&f.workbook, "workbook", "", "also write an XLSX overview of exported patients")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fs.StringVar(&f.traceFile, "trace-file", "", "write OpenTelemetry spans to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug | info | warn | error")

	return cmd
}

// operandsLast moves negative integer operands behind a "--" terminator so
// they reach the command as positional arguments. Values of flags that take
// one, as in "--dir-prefix -1", are left in place.
func operandsLast(fs *pflag.FlagSet, args []string) []string {
	var (
		out      = make([]string, 0, len(args)+1)
		operands []string
		rest     []string
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = args[i+1:]
			break
		}
		if negativeInteger.MatchString(arg) {
			operands = append(operands, arg)
			continue
		}
		out = append(out, arg)
		if takesValue(fs, arg) && i+1 < len(args) {
			i++
			out = append(out, args[i])
		}
	}

	if len(operands) == 0 {
		return args
	}
	out = append(out, "--")
	out = append(out, operands...)
	return append(out, rest...)
}

// takesValue reports whether arg is a long flag whose value is the next argument
func takesValue(fs *pflag.FlagSet, arg string) bool {
	if !strings.HasPrefix(arg, "--") || strings.Contains(arg, "=") {
		return false
	}
	flag := fs.Lookup(strings.TrimPrefix(arg, "--"))
	return flag != nil && flag.NoOptDefVal == ""
}

// usageArgs accepts between lo and hi positional arguments
func usageArgs(lo, hi int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			return apperrors.NewUsageError(
				fmt.Sprintf("expected %d or %d arguments, got %d", lo, hi, len(args)))
		}
		return nil
	}
}

func run(cmd *cobra.Command, args []string, f *flags, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize logger", err)
	}
	slog.SetDefault(logger)
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureTraceID(cmd.Context())

	telemetry, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return apperrors.NewConfigError("failed to initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	opts := app.Options{
		DataFolder:   args[0],
		ExportFolder: args[1],
	}
	if len(args) == 3 {
		opts.Limit = args[2]
	}

	application := app.NewApplication(cfg, logger, telemetry, app.Dependencies{})
	application.Progress = stdout
	if logFile := infrastructure.LogFile(); logFile != nil {
		application.Outputs = append(application.Outputs, logFile)
	}

	_, err = application.Run(ctx, opts)
	return err
}

// loadConfig loads the configuration and applies explicitly set flags
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load configuration", err)
	}

	changed := cmd.Flags().Changed
	if changed("dir-prefix") {
		cfg.Export.DirPrefix = f.dirPrefix
	}
	if changed("quality-score") {
		cfg.Export.QualityScore = f.qualityScore
	}
	if changed("workbook") {
		cfg.Export.Workbook = f.workbook
	}
	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = f.metricsFile
	}
	if changed("trace-file") {
		cfg.Telemetry.TraceFile = f.traceFile
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewUsageError(fmt.Sprintf("invalid option: %v", err))
	}
	return cfg, nil
}
