package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/talentforge/insights/internal/bootstrap"
	"github.com/talentforge/insights/internal/devseed"
	"github.com/talentforge/insights/internal/domain/model"
)

const (
	defaultCommandTimeout   = time.Minute
	defaultMigrationTimeout = 5 * time.Minute
)

type profileShowOptions struct {
	ProfileID string
	RawJSON   bool
}

type profileListOptions struct {
	Limit  int
	Offset int
}

type cacheListOptions struct {
	ProfileID string
}

type cacheClearKeyOptions struct {
	ProfileID string
	Key       string
	Yes       bool
}

type executionPollOptions struct {
	ExecutionID string
	RawJSON     bool
}

func runProfileShow(cmdCtx *commandContext, args []string) error {
	opts, err := parseProfileShowFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		doc, getErr := b.Services.Profiles.Get(ctx, opts.ProfileID)
		if getErr != nil {
			return getErr
		}
		if opts.RawJSON {
			return printDocJSON(doc)
		}
		return printProfileDetail(doc)
	})
}

func runProfileList(cmdCtx *commandContext, args []string) error {
	opts, err := parseProfileListFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		docs, listErr := b.Services.Profiles.List(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return listErr
		}
		return printProfileTable(docs)
	})
}

func runCacheList(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheListFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		entries, histErr := b.Services.ScoreCache.History(ctx, opts.ProfileID)
		if histErr != nil {
			return histErr
		}
		return printCacheEntries(opts.ProfileID, entries)
	})
}

func runCacheClearKey(cmdCtx *commandContext, args []string) error {
	opts, err := parseCacheClearKeyFlags(args)
	if err != nil {
		return err
	}
	if !opts.Yes {
		if err = confirmAction(fmt.Sprintf(
			"remove cache entry %s from profile %s", opts.Key, opts.ProfileID)); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		if clearErr := b.Services.ScoreCache.ClearKey(ctx, opts.ProfileID, opts.Key); clearErr != nil {
			return clearErr
		}
		return writef(os.Stdout, "Removed cache entry %s from profile %s\n", opts.Key, opts.ProfileID)
	})
}

func runExecutionPoll(cmdCtx *commandContext, args []string) error {
	opts, err := parseExecutionPollFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		handle, pollErr := b.Services.Insights.InsightStatus(ctx, opts.ExecutionID)
		if pollErr != nil {
			return pollErr
		}
		if opts.RawJSON {
			return printHandleJSON(handle)
		}
		return printHandleDetail(handle)
	})
}

func runSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withBackend(cmdCtx, func(b *backend) error {
		return devseed.Run(ctx, b.Services.Repo, cmdCtx.Logger)
	})
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	timeout := fs.Duration(
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *timeout <= 0 {
		return errors.New("--timeout must be greater than zero")
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")
	if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	cmdCtx.Logger.Info("migrations completed successfully")
	return nil
}

func parseProfileShowFlags(args []string) (profileShowOptions, error) {
	fs := flag.NewFlagSet("profile-show", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts profileShowOptions
	fs.StringVar(&opts.ProfileID, "id", "", "Profile ID to show (required)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print the raw document JSON")

	if err := fs.Parse(args); err != nil {
		return profileShowOptions{}, err
	}
	opts.ProfileID = strings.TrimSpace(opts.ProfileID)
	if opts.ProfileID == "" {
		return profileShowOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func parseProfileListFlags(args []string) (profileListOptions, error) {
	fs := flag.NewFlagSet("profile-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts profileListOptions
	fs.IntVar(&opts.Limit, "limit", 20, "Maximum profiles to display")
	fs.IntVar(&opts.Offset, "offset", 0, "Offset into the profile listing")

	if err := fs.Parse(args); err != nil {
		return profileListOptions{}, err
	}
	if opts.Limit <= 0 {
		return profileListOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return profileListOptions{}, errors.New("--offset cannot be negative")
	}
	return opts, nil
}

func parseCacheListFlags(args []string) (cacheListOptions, error) {
	fs := flag.NewFlagSet("cache-list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts cacheListOptions
	fs.StringVar(&opts.ProfileID, "profile-id", "", "Profile ID to inspect (required)")

	if err := fs.Parse(args); err != nil {
		return cacheListOptions{}, err
	}
	opts.ProfileID = strings.TrimSpace(opts.ProfileID)
	if opts.ProfileID == "" {
		return cacheListOptions{}, errors.New("--profile-id is required")
	}
	return opts, nil
}

func parseCacheClearKeyFlags(args []string) (cacheClearKeyOptions, error) {
	fs := flag.NewFlagSet("cache-clear-key", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts cacheClearKeyOptions
	fs.StringVar(&opts.ProfileID, "profile-id", "", "Profile ID holding the entry (required)")
	fs.StringVar(&opts.Key, "key", "", "Fingerprint key of the cache entry (required)")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return cacheClearKeyOptions{}, err
	}
	opts.ProfileID = strings.TrimSpace(opts.ProfileID)
	opts.Key = strings.TrimSpace(opts.Key)
	if opts.ProfileID == "" {
		return cacheClearKeyOptions{}, errors.New("--profile-id is required")
	}
	if opts.Key == "" {
		return cacheClearKeyOptions{}, errors.New("--key is required")
	}
	return opts, nil
}

func parseExecutionPollFlags(args []string) (executionPollOptions, error) {
	fs := flag.NewFlagSet("execution-poll", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts executionPollOptions
	fs.StringVar(&opts.ExecutionID, "id", "", "Execution ID to poll (required)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print the raw handle JSON")

	if err := fs.Parse(args); err != nil {
		return executionPollOptions{}, err
	}
	opts.ExecutionID = strings.TrimSpace(opts.ExecutionID)
	if opts.ExecutionID == "" {
		return executionPollOptions{}, errors.New("--id is required")
	}
	return opts, nil
}

func confirmAction(action string) error {
	if err := writef(os.Stderr, "About to %s.\nType \"yes\" to continue: ", action); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	var resp string
	if _, err := fmt.Fscanln(os.Stdin, &resp); err != nil {
		return errors.New("aborted by user")
	}
	if !strings.EqualFold(strings.TrimSpace(resp), "yes") {
		return errors.New("aborted by user")
	}
	return nil
}

func printDocJSON(doc *model.ProfileDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return writeln(os.Stdout, string(raw))
}

func printHandleJSON(handle *model.JobHandle) error {
	raw, err := json.MarshalIndent(handle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handle: %w", err)
	}
	return writeln(os.Stdout, string(raw))
}

func printProfileDetail(doc *model.ProfileDocument) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\t%s\n", doc.ID); err != nil {
		return fmt.Errorf("write profile id: %w", err)
	}
	if err := writef(w, "Version\t%d\n", doc.Version); err != nil {
		return fmt.Errorf("write profile version: %w", err)
	}
	if err := writef(w, "Name\t%s\n", doc.Resume.FullName); err != nil {
		return fmt.Errorf("write profile name: %w", err)
	}
	if err := writef(w, "Role\t%s\n", doc.Resume.CurrentRole("(none)")); err != nil {
		return fmt.Errorf("write profile role: %w", err)
	}
	if err := writef(w, "Skills\t%d\n", len(doc.Resume.Skills)); err != nil {
		return fmt.Errorf("write profile skills: %w", err)
	}
	if err := writef(w, "Cached Scores\t%d\n", len(doc.ScoreCache)); err != nil {
		return fmt.Errorf("write profile cached scores: %w", err)
	}
	for kind, entries := range doc.InsightHistory {
		if err := writef(w, "History (%s)\t%d\n", kind, len(entries)); err != nil {
			return fmt.Errorf("write profile history: %w", err)
		}
	}
	if err := writef(w, "Created\t%s\n", doc.CreatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write profile created: %w", err)
	}
	if err := writef(w, "Updated\t%s\n", doc.UpdatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write profile updated: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush profile detail: %w", err)
	}
	return nil
}

func printProfileTable(docs []*model.ProfileDocument) error {
	if len(docs) == 0 {
		return writeln(os.Stdout, "(no profiles stored)")
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "ID\tName\tVersion\tUpdated"); err != nil {
		return fmt.Errorf("write listing header: %w", err)
	}
	for _, doc := range docs {
		if err := writef(w, "%s\t%s\t%d\t%s\n",
			doc.ID,
			doc.Resume.FullName,
			doc.Version,
			doc.UpdatedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("write listing row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush listing: %w", err)
	}
	return nil
}

func printCacheEntries(profileID string, entries map[string]model.CachedScore) error {
	if len(entries) == 0 {
		return writef(os.Stdout, "(no cached scores for profile %s)\n", profileID)
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Key\tScore\tComputed\tPreview"); err != nil {
		return fmt.Errorf("write cache header: %w", err)
	}
	for _, key := range keys {
		entry := entries[key]
		if err := writef(w, "%s\t%d\t%s\t%s\n",
			key,
			entry.Score.OverallScore,
			entry.ComputedAt.Format(time.RFC3339),
			entry.JobDescriptionPreview,
		); err != nil {
			return fmt.Errorf("write cache row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush cache listing: %w", err)
	}
	return nil
}

func printHandleDetail(handle *model.JobHandle) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "Execution\t%s\n", handle.ExecutionID); err != nil {
		return fmt.Errorf("write execution id: %w", err)
	}
	if err := writef(w, "State\t%s\n", handle.State); err != nil {
		return fmt.Errorf("write execution state: %w", err)
	}
	if handle.StartedAt != nil {
		if err := writef(w, "Started\t%s\n", handle.StartedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("write execution started: %w", err)
		}
	}
	if handle.EndedAt != nil {
		if err := writef(w, "Ended\t%s\n", handle.EndedAt.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("write execution ended: %w", err)
		}
	}
	if handle.Error != "" {
		if err := writef(w, "Error\t%s\n", handle.Error); err != nil {
			return fmt.Errorf("write execution error: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush execution detail: %w", err)
	}
	if len(handle.Outputs) > 0 {
		if err := writef(os.Stdout, "\nOutputs:\n%s\n", handle.Outputs); err != nil {
			return fmt.Errorf("write execution outputs: %w", err)
		}
	}
	return nil
}
