package src

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type cliFlags struct {
	host          string
	port          int
	model         string
	timeout       int
	ssh           string
	maxIterations int
	verbose       bool
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// buildConfig layers flags over file and environment config. Flags the
// user actually set win.
func buildConfig(cmd *cobra.Command, flags *cliFlags) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	cfg, err := LoadConfig(cwd)
	if err != nil {
		return Config{}, err
	}

	if cmd.Flags().Changed("host") {
		cfg.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flags.port
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = flags.model
	}
	if cmd.Flags().Changed("ssh") {
		cfg.SSH = flags.ssh
	}
	if cmd.Flags().Changed("max-iterations") {
		cfg.MaxIterations = flags.maxIterations
	}
	if cmd.Flags().Changed("timeout") {
		cfg.GenerateTimeout = time.Duration(flags.timeout) * time.Second
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	return cfg, nil
}

type session struct {
	agent   *Agent
	console *Console
	log     *zap.SugaredLogger
}

func openSession(cmd *cobra.Command, flags *cliFlags, scan bool) (*session, error) {
	log, err := newLogger(flags.verbose)
	if err != nil {
		return nil, err
	}
	cfg, err := buildConfig(cmd, flags)
	if err != nil {
		return nil, err
	}
	agent, err := NewAgent(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}
	console := NewConsole()
	if scan {
		if err := agent.Scanner().Scan(true); err != nil {
			log.Warnw("project scan failed", "error", err)
		}
	}
	return &session{agent: agent, console: console, log: log}, nil
}

func (s *session) close() {
	if err := s.agent.Close(); err != nil {
		s.log.Warnw("session close", "error", err)
	}
	_ = s.log.Sync()
}

// markdownCommand builds the shape shared by analyze, improve and
// explain: one file argument in, markdown out.
func markdownCommand(flags *cliFlags, use, short string, run func(*Agent, context.Context, string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			out, err := run(s.agent, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s.console.Markdown(out)
			return nil
		},
	}
}

// NewRootCommand assembles the full command tree.
func NewRootCommand() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "mori",
		Short: "A coding assistant backed by a local inference server",
		Long: `mori forwards source files and instructions to an Ollama-compatible
inference server and applies the suggestions it gets back. Destructive
operations keep sidecar backups next to the files they touch.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.host, "host", "localhost", "inference server host")
	pf.IntVar(&flags.port, "port", 11434, "inference server port")
	pf.StringVarP(&flags.model, "model", "m", "mistral", "model name")
	pf.IntVar(&flags.timeout, "timeout", 60, "generation timeout in seconds")
	pf.StringVar(&flags.ssh, "ssh", "", "reach the server through an ssh tunnel (user@host[:port])")
	pf.IntVar(&flags.maxIterations, "max-iterations", 5, "iteration budget for goal runs")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		markdownCommand(flags, "analyze", "Analyze a source file", (*Agent).AnalyzeCode),
		markdownCommand(flags, "improve", "Suggest improvements for a source file", (*Agent).SuggestImprovements),
		markdownCommand(flags, "explain", "Explain a source file step by step", (*Agent).ExplainCode),
		newAskCommand(flags),
		newModelsCommand(flags),
		newEditCommand(flags),
		newAchieveCommand(flags),
		newAutoCommand(flags),
	)
	return root
}

func newAskCommand(flags *cliFlags) *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a free-form question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.close()

			question := strings.Join(args, " ")
			if stream {
				_, err := s.agent.AskStream(cmd.Context(), question, s.console.Print)
				if err != nil {
					return err
				}
				s.console.Print("\n")
				return nil
			}

			out, err := s.agent.Ask(cmd.Context(), question)
			if err != nil {
				return err
			}
			s.console.Markdown(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print tokens as they arrive instead of rendering at the end")
	return cmd
}

func newModelsCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer s.close()

			names, err := s.agent.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				s.console.Note("no models installed")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newEditCommand(flags *cliFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "edit <file> <instruction>",
		Short: "Apply a one-shot structured edit to a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			path := args[0]
			instruction := strings.Join(args[1:], " ")

			approve := func(p EditProposal, diff string) (bool, error) {
				s.console.Header("Explanation")
				s.console.Markdown(p.Explanation)
				s.console.Header("Proposed content")
				s.console.Code(p.Code, FenceLangForFile(path))
				if diff != "" {
					s.console.Print(diff + "\n")
				}
				if p.Notes != "" && !strings.EqualFold(strings.TrimSpace(p.Notes), "none") {
					s.console.Note("notes: " + p.Notes)
				}
				if yes {
					return true, nil
				}
				return s.console.Confirm("Apply this edit?", false)
			}
			return s.agent.EditFile(cmd.Context(), path, instruction, approve)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking")
	return cmd
}

func newAchieveCommand(flags *cliFlags) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "achieve <file> <goal>",
		Short: "Iterate on a file until it meets a goal, asking before each write",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			path := args[0]
			goal := strings.Join(args[1:], " ")
			started := time.Now()

			var res *Result
			if plain || !s.console.tty {
				res, err = s.agent.RunInteractiveConsole(cmd.Context(), path, goal, s.console)
			} else {
				res, err = s.agent.RunInteractiveTUI(cmd.Context(), path, goal)
			}
			if err != nil {
				return err
			}
			ReportResult(s.console, res, started)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-oriented prompts instead of the full-screen UI")
	return cmd
}

func newAutoCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "auto <file> <goal>",
		Short: "Iterate on a file until it meets a goal, applying and running every change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer s.close()

			path := args[0]
			goal := strings.Join(args[1:], " ")
			started := time.Now()

			res, err := s.agent.RunAutonomous(cmd.Context(), path, goal, s.console)
			if err != nil {
				return err
			}
			ReportResult(s.console, res, started)
			return nil
		},
	}
}

// Execute runs the CLI until completion or interrupt.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
