package main

import (
	"context"
	"log/slog"
	"os"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/talentforge/insights/config"
	"github.com/talentforge/insights/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

func main() {
	logger := bootstrap.InitLogger("info")

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"profile-show": {
			name:        "profile-show",
			description: "Show a stored profile document including cached artifacts",
			run:         runProfileShow,
		},
		"profile-list": {
			name:        "profile-list",
			description: "List stored profile documents",
			run:         runProfileList,
		},
		"cache-list": {
			name:        "cache-list",
			description: "List score-cache entries for a profile",
			run:         runCacheList,
		},
		"cache-clear-key": {
			name:        "cache-clear-key",
			description: "Remove a single score-cache entry from a profile",
			run:         runCacheClearKey,
		},
		"execution-poll": {
			name:        "execution-poll",
			description: "Poll a remote execution once and print its status",
			run:         runExecutionPoll,
		},
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"seed": {
			name:        "seed",
			description: "Seed sample profile documents into the configured store",
			run:         runSeed,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: insights-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(os.Stdout, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}
