package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"stockrelay/internal/config"
	"stockrelay/internal/httpx"
	"stockrelay/internal/logger"
	"stockrelay/internal/luamodule"
	"stockrelay/internal/provider/stooq"
	"stockrelay/internal/provider/stooqadapter"
	"stockrelay/internal/snapshot"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch the latest end-of-day quotes and write the snapshot and Lua module",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config YAML (default: $CONFIG_FILE or " + config.DefaultPath + ")"},
			&cli.StringFlag{Name: "symbols", Aliases: []string{"s"}, Usage: "comma-separated tickers, overrides --sets"},
			&cli.StringFlag{Name: "sets", Usage: "comma-separated symbol set names"},
			&cli.StringFlag{Name: "json", Usage: "snapshot output path"},
			&cli.StringFlag{Name: "module", Usage: "Lua module output path"},
			&cli.BoolFlag{Name: "no-module", Usage: "skip rendering the Lua module"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "human readable debug logs"},
		},
		Action: fetchAction,
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if cmd.IsSet("sets") {
		cfg.Fetch.Sets = config.SplitCSV(cmd.String("sets"))
	}
	if v := cmd.String("json"); v != "" {
		cfg.Fetch.JSONPath = v
	}
	if v := cmd.String("module"); v != "" {
		cfg.Fetch.ModulePath = v
	}
	if cmd.Bool("no-module") {
		cfg.Fetch.RenderModule = false
	}
	if err := cfg.ValidateFetch(); err != nil {
		return err
	}

	lg, err := logger.New(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	tickers := config.SplitCSV(cmd.String("symbols"))
	if len(tickers) == 0 {
		if tickers, err = cfg.Tickers(cfg.Fetch.Sets); err != nil {
			return err
		}
	}

	hc := httpx.New(cfg.Timeout())
	if cfg.HTTP.UserAgent != "" {
		hc.UserAgent = cfg.HTTP.UserAgent
	}
	client := stooq.NewClient(stooq.WithBaseURL(cfg.Stooq.BaseURL), stooq.WithHTTPClient(hc))
	adapter := stooqadapter.New(stooqadapter.Config{
		Interval:   cfg.Stooq.Interval,
		WindowDays: cfg.Stooq.WindowDays,
		Suffix:     cfg.Stooq.StripSuffix,
	}, client)

	lg.Info("fetching quotes", zap.Strings("tickers", tickers), zap.String("provider", adapter.Name()))
	snap := snapshot.NewCollector(adapter, lg.Logger).FetchAll(ctx, tickers)

	if err := snapshot.Write(cfg.Fetch.JSONPath, snap); err != nil {
		return err
	}
	lg.Info("snapshot written", zap.String("path", cfg.Fetch.JSONPath), zap.Int("symbols", snap.Len()), zap.Int("requested", len(tickers)))

	if !cfg.Fetch.RenderModule {
		return nil
	}
	if err := luamodule.Write(cfg.Fetch.ModulePath, luamodule.Render(snap, cfg.Names())); err != nil {
		return err
	}
	lg.Info("module written", zap.String("path", cfg.Fetch.ModulePath))
	return nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		os.Exit(1)
	}
}
