package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"stockrelay/internal/apperr"
	"stockrelay/internal/config"
	"stockrelay/internal/httpx"
	"stockrelay/internal/logger"
	"stockrelay/internal/roblox"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Replace the Roblox asset with the generated Lua module",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config YAML (default: $CONFIG_FILE or " + config.DefaultPath + ")"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "file to upload"},
			&cli.Int64Flag{Name: "asset-id", Usage: "target asset id"},
			&cli.StringFlag{Name: "encoding", Usage: "request body encoding: multipart or raw"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "human readable debug logs"},
		},
		Action: uploadAction,
	}
}

func uploadAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if v := cmd.String("file"); v != "" {
		cfg.Roblox.FilePath = v
	}
	if v := cmd.Int64("asset-id"); v != 0 {
		cfg.Roblox.AssetID = v
	}
	if v := cmd.String("encoding"); v != "" {
		cfg.Roblox.Encoding = strings.ToLower(v)
	}
	if cfg.Roblox.APIKey == "" {
		return apperr.Wrap(apperr.ErrConfig, "upload", errors.New("ROBLOX_API_KEY environment variable not set"))
	}
	if err := cfg.ValidateUpload(); err != nil {
		return err
	}
	enc, err := roblox.ParseEncoding(cfg.Roblox.Encoding)
	if err != nil {
		return err
	}

	lg, err := logger.New(cmd.Bool("verbose"))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	client := roblox.NewClient(cfg.Roblox.APIKey,
		roblox.WithBaseURL(cfg.Roblox.BaseURL),
		roblox.WithAssetType(cfg.Roblox.AssetType),
		roblox.WithHTTPClient(httpx.New(cfg.Timeout()).HTTP),
		roblox.WithLogger(lg.Logger),
	)

	res, err := client.UploadAsset(ctx, cfg.Roblox.AssetID, cfg.Roblox.FilePath, enc)
	if err != nil {
		var he *apperr.HTTPError
		if errors.As(err, &he) {
			lg.Error("upload rejected", zap.Int64("asset_id", cfg.Roblox.AssetID), zap.Int("status", he.StatusCode), zap.String("body", he.Body))
		} else {
			lg.Error("upload failed", zap.Int64("asset_id", cfg.Roblox.AssetID), zap.Error(err))
		}
		return err
	}
	lg.Info("uploaded", zap.Int64("asset_id", cfg.Roblox.AssetID), zap.Int("status", res.StatusCode), zap.String("response", res.Body))
	return nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "upload:", err)
		os.Exit(1)
	}
}
