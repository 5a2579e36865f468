package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/roundtable/agent/conversation"
	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/agent/scheduler"
	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/types"
)

type runOptions struct {
	configPath string
	scriptPath string
	mode       string
	watch      bool
}

func parseRunFlags(args []string) (runOptions, error) {
	var opts runOptions
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.scriptPath, "script", "", "Path to scripted runtime responses")
	fs.StringVar(&opts.mode, "mode", "", "Override conversation mode")
	fs.BoolVar(&opts.watch, "watch", false, "Reload the conversation section on config changes")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.scriptPath == "" {
		return opts, errors.New("--script is required")
	}
	if opts.watch && opts.configPath == "" {
		return opts, errors.New("--watch requires --config")
	}
	return opts, nil
}

// loadConfig applies defaults, the config file, env overrides and the --mode flag.
func loadConfig(opts runOptions) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader()
	if opts.configPath != "" {
		loader = loader.WithConfigPath(opts.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := overrideMode(cfg, opts.mode); err != nil {
		return nil, nil, err
	}
	return loader, cfg, nil
}

func overrideMode(cfg *config.Config, mode string) error {
	if mode == "" {
		return nil
	}
	m, err := conversation.ParseMode(mode)
	if err != nil {
		return err
	}
	cfg.Conversation.Mode = string(m)
	return nil
}

func runConversation(args []string, in io.Reader, out io.Writer) error {
	opts, err := parseRunFlags(args)
	if err != nil {
		return err
	}
	loader, cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	script, err := runtime.LoadScript(opts.scriptPath)
	if err != nil {
		return err
	}
	if len(cfg.Participants) == 0 {
		cfg.Participants = participantsFromScript(script)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting Roundtable",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("mode", cfg.Conversation.Mode),
		zap.Int("participants", len(cfg.Participants)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, runtime.NewScripted(script), logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	if opts.watch {
		watcher := config.NewFileWatcher(loader, opts.configPath, config.WithWatcherLogger(logger))
		go watcher.Run(ctx, func(next *config.Config) {
			applyReload(a.session, opts.mode, next, logger)
		})
	}

	return converse(ctx, a.session, in, out)
}

// applyReload re-applies the --mode override to a reloaded config and hands
// its conversation section to the session.
func applyReload(sess *scheduler.Session, mode string, next *config.Config, logger *zap.Logger) {
	// --mode 优先于配置文件
	if err := overrideMode(next, mode); err != nil {
		logger.Warn("mode override not applied to reloaded config", zap.Error(err))
	}
	changed, err := sess.ReloadIfChanged(next.Conversation)
	if err != nil {
		logger.Warn("config reload not applied", zap.Error(err))
		return
	}
	if changed {
		logger.Info("conversation config applied", zap.String("mode", next.Conversation.Mode))
	}
}

// converse reads human messages line by line and runs one round per message.
func converse(ctx context.Context, sess *scheduler.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	printed := 0
	topic := ""

	fmt.Fprintf(out, "Session %s. Type a message, /transcript or /quit.\n", sess.ID())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/transcript":
			display, err := sess.DisplayString()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, display)
			continue
		}

		idx, err := sess.AppendAndGetIndex(conversation.HumanSender, line)
		if err != nil {
			if types.IsErrorCode(err, types.ErrInvalidMessage) {
				fmt.Fprintf(out, "! %v\n", err)
				continue
			}
			return err
		}
		printed = idx + 1
		if topic == "" {
			topic = line
		}

		outcome, err := sess.RunRound(ctx, topic)
		if err != nil {
			return err
		}
		msgs, err := sess.Transcript()
		if err != nil {
			return err
		}
		for _, m := range msgs[printed:] {
			fmt.Fprintln(out, m.String())
		}
		printed = len(msgs)

		switch {
		case outcome.Aborted:
			return ctx.Err()
		case outcome.NoParticipation:
			fmt.Fprintln(out, "(nobody wants to add anything)")
		}
	}
	return scanner.Err()
}
