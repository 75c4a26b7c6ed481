package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/chat"
	"github.com/starford/raido/internal/kv"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/recordservice"
	"github.com/starford/raido/internal/settings"
	pkgconfig "github.com/starford/raido/pkg/config"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runChat connects to an echo-chat server and pipes stdin lines through
// it, printing each echoed frame.
func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	client := chat.NewClient(cmd.String("url"),
		time.Duration(cfg.Chat.ReconnectBackoffSeconds)*time.Second,
		cfg.Chat.MaxDialAttempts, logger)
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("chat connect error: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := client.Send(ctx, scanner.Text()); err != nil {
			return fmt.Errorf("chat send error: %w", err)
		}
		frame, err := client.Recv()
		if err != nil {
			return fmt.Errorf("chat recv error: %w", err)
		}
		var echo chat.EchoPayload
		if frame.Type == "chat.echo" && json.Unmarshal(frame.Payload, &echo) == nil {
			fmt.Printf("%s %s\n", echo.ServerTime, echo.Body)
		}
	}
	return scanner.Err()
}

// runMCP serves the record store over MCP stdio transport.
func runMCP(_ context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	durable, err := kv.OpenSQLite(cfg.Store.Path,
		kv.WithMaxEntries(cfg.Store.MaxEntries),
		kv.WithMaxValueBytes(cfg.Store.MaxValueBytes))
	if err != nil {
		return fmt.Errorf("init durable backend: %w", err)
	}
	defer durable.Close()

	prefs, err := settings.New(durable, cfg.Store.DefaultBackend)
	if err != nil {
		return fmt.Errorf("init settings: %w", err)
	}

	durableStore := record.NewStore(durable, cfg.Store.Prefix)
	sessionStore := durableStore.WithBackend(kv.NewMemory())
	svc := recordservice.NewService(durableStore, sessionStore, prefs, nil)

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "raido",
		Usage:  "Local-first hub of small apps: record store, blog viewer, weather lookup, and echo chat",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Connect to the echo-chat endpoint and pipe stdin through it",
				Action: runChat,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "WebSocket URL of the echo endpoint",
						Value: "ws://localhost:8080/chat/ws",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the record store over MCP stdio transport",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
