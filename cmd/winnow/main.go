// Command winnow runs the participant selection pipeline.
//
// Usage:
//
//	winnow collect            # gather raw data from the event posts via Apify
//	winnow sample -n 100      # generate a synthetic raw dataset instead
//	winnow run                # clean, score, rank, and export the selection
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/codeGROOVE-dev/winnow"
	"github.com/codeGROOVE-dev/winnow/collect"
	"github.com/codeGROOVE-dev/winnow/config"
	"github.com/codeGROOVE-dev/winnow/dataset"
	"github.com/codeGROOVE-dev/winnow/httpcache"
	"github.com/codeGROOVE-dev/winnow/instagram"
	"github.com/codeGROOVE-dev/winnow/record"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "sample":
		err = sampleCmd(os.Args[2:])
	case "collect":
		err = collectCmd(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: winnow <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  collect   gather comments, profiles, and posts via Apify actors")
	fmt.Fprintln(os.Stderr, "  sample    generate a synthetic raw dataset")
	fmt.Fprintln(os.Stderr, "  run       run the selection pipeline and export CSVs")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'winnow <command> -h' for command options.")
}

// commonFlags registers the flags every subcommand shares.
func commonFlags(fs *flag.FlagSet) (configPath *string, debug *bool) {
	configPath = fs.String("config", "", "path to YAML config (defaults apply when empty)")
	debug = fs.Bool("debug", false, "enable debug logging")
	return configPath, debug
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	nowFlag := fs.String("now", "", "reference time (RFC3339) for recency windows; defaults to wall clock")
	seed := fs.Int64("seed", dataset.DefaultSeed, "seed for generated sample data when raw data is missing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*debug)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if *nowFlag != "" {
		now, err = time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			return fmt.Errorf("parse -now: %w", err)
		}
		now = now.UTC()
	}

	// Fall back to generated data so the pipeline is runnable before any
	// collection has happened.
	if dataset.Empty(cfg.Data.RawDir) {
		logger.Info("raw data not found, generating sample data", "dir", cfg.Data.RawDir, "seed", *seed)
		raw := dataset.Generate(50, *seed, now)
		if err := dataset.Save(cfg.Data.RawDir, raw); err != nil {
			return err
		}
	}

	raw, err := dataset.Load(cfg.Data.RawDir)
	if err != nil {
		return err
	}
	logger.Info("loaded raw data",
		"comments", len(raw.Comments), "profiles", len(raw.Profiles), "posts", len(raw.Posts))

	result, err := winnow.Run(context.Background(), winnow.Input{
		Profiles: raw.Profiles,
		Posts:    raw.Posts,
		Comments: raw.Comments,
	},
		winnow.WithLogger(logger),
		winnow.WithNow(now),
		winnow.WithWindowSize(cfg.Pipeline.WindowSize),
		winnow.WithKeywords(cfg.KeywordList()),
		winnow.WithLimits(cfg.Limits()),
	)
	if err != nil {
		return err
	}

	if err := dataset.Export(cfg.Data.ProcessedDir, result); err != nil {
		return err
	}
	logger.Info("exported results", "dir", cfg.Data.ProcessedDir)

	printSummary(result)
	return nil
}

func printSummary(result *winnow.Result) {
	fmt.Printf("Participants: %d ranked, %d excluded\n", len(result.Ranking), len(result.Excluded))
	fmt.Printf("Shortlist: %d, winners draft: %d\n\n", len(result.Shortlist), len(result.WinnersDraft))

	flagged := 0
	flagCounts := make(map[string]int)
	for _, row := range result.Ranking {
		if row.RiskFlag != "" {
			flagged++
		}
	}
	for _, e := range result.Excluded {
		for _, f := range e.Flags {
			flagCounts[f]++
		}
	}
	fmt.Printf("Risk flags: %d flagged in main pool, excluded by flag: %v\n\n", flagged, flagCounts)

	fmt.Println("Top 10:")
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "rank\tusername\tfinal\trel\trely\tfit\trisk")
	top := result.Ranking
	if len(top) > 10 {
		top = top[:10]
	}
	for _, row := range top {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%d\t%s\n",
			row.Rank, row.Username, row.FinalScore,
			row.RelationshipScore, row.ReliabilityScore, row.RunnerFitScore, row.RiskFlag)
	}
	w.Flush() //nolint:errcheck,gosec // stdout
}

func sampleCmd(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	n := fs.Int("n", 50, "number of users to generate")
	seed := fs.Int64("seed", dataset.DefaultSeed, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*debug)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	raw := dataset.Generate(*n, *seed, time.Now().UTC())
	if err := dataset.Save(cfg.Data.RawDir, raw); err != nil {
		return err
	}
	logger.Info("generated sample data",
		"dir", cfg.Data.RawDir, "users", *n,
		"comments", len(raw.Comments), "posts", len(raw.Posts))
	return nil
}

func collectCmd(args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	configPath, debug := commonFlags(fs)
	augment := fs.Bool("augment", true, "augment with generated users up to the configured target")
	noCache := fs.Bool("no-cache", false, "disable caching of actor runs and HTTP responses")
	cacheTTL := fs.Duration("cache-ttl", 0, "cache time-to-live (0 uses the configured value)")
	noBrowser := fs.Bool("no-browser", false, "disable reading Instagram cookies from browser stores")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*debug)
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	var cache *httpcache.Cache
	if !*noCache && !cfg.Cache.Disabled {
		ttl := cfg.Cache.TTL.Std()
		if *cacheTTL > 0 {
			ttl = *cacheTTL
		}
		cache, err = httpcache.New(ttl)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			logger.Debug("cache initialized", "ttl", ttl.String())
		}
	}

	collectOpts := []collect.Option{collect.WithLogger(logger)}
	if cache != nil {
		collectOpts = append(collectOpts, collect.WithCache(cache))
	}
	client, err := collect.New(cfg.Collection.APIFYToken, collectOpts...)
	if err != nil {
		return fmt.Errorf("set APIFY_TOKEN or collection.apifyToken: %w", err)
	}

	ctx := context.Background()
	bundle, err := client.Gather(ctx, cfg.Event.PostShortcodes,
		cfg.Collection.CommentLimit, cfg.Collection.PostLimit)
	if err != nil {
		return err
	}
	fetchMissingProfiles(ctx, logger, bundle, cache, *noBrowser)

	raw := &dataset.Raw{
		Comments: bundle.Comments,
		Profiles: bundle.Profiles,
		Posts:    bundle.Posts,
	}
	if *augment && cfg.Event.TargetParticipants > 0 {
		added := dataset.Augment(raw, cfg.Event.TargetParticipants, dataset.DefaultSeed, time.Now().UTC())
		if added > 0 {
			logger.Info("augmented with generated users", "added", added, "target", cfg.Event.TargetParticipants)
		}
	}

	if err := dataset.Save(cfg.Data.RawDir, raw); err != nil {
		return err
	}
	logger.Info("saved raw data",
		"dir", cfg.Data.RawDir,
		"comments", len(raw.Comments), "profiles", len(raw.Profiles), "posts", len(raw.Posts))
	return nil
}

// fetchMissingProfiles fills in commenters the profile actor skipped by
// querying the Instagram web API directly. Failures are logged and skipped;
// the pipeline treats a missing profile the same as an unfetchable one.
func fetchMissingProfiles(ctx context.Context, logger *slog.Logger, bundle *collect.Bundle, cache *httpcache.Cache, noBrowser bool) {
	have := make(map[string]bool, len(bundle.Profiles))
	for _, p := range bundle.Profiles {
		have[record.StringField(p, "username", "")] = true
	}

	var missing []string
	seen := make(map[string]bool)
	for _, c := range bundle.Comments {
		username := record.StringField(c, "username", "")
		if username == "" || have[username] || seen[username] {
			continue
		}
		seen[username] = true
		missing = append(missing, username)
	}
	if len(missing) == 0 {
		return
	}
	sort.Strings(missing)
	logger.Info("fetching profiles the actor run missed", "count", len(missing))

	opts := []instagram.Option{instagram.WithLogger(logger)}
	if cache != nil {
		opts = append(opts, instagram.WithHTTPCache(cache))
	}
	if !noBrowser {
		opts = append(opts, instagram.WithBrowserCookies())
	}
	ig, err := instagram.New(ctx, opts...)
	if err != nil {
		logger.Warn("instagram fallback unavailable", "error", err)
		return
	}

	fetched := 0
	for _, username := range missing {
		profile, posts, err := ig.Profile(ctx, username)
		if err != nil {
			logger.Warn("profile fetch failed", "username", username, "error", err)
			continue
		}
		bundle.Profiles = append(bundle.Profiles, profile)
		bundle.Posts = append(bundle.Posts, posts...)
		fetched++
	}
	logger.Info("filled in missing profiles", "fetched", fetched, "failed", len(missing)-fetched)
}
