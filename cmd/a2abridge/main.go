// Command a2abridge drives a remote A2A agent from the command line.
//
// Usage:
//
//	a2abridge discover --endpoint http://localhost:8080
//	a2abridge send "hello" --config bridge.yaml
//	a2abridge chat --config bridge.yaml --metrics-out metrics.json
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/agentbench/a2abridge/pkg/a2a"
	"github.com/agentbench/a2abridge/pkg/agent"
	"github.com/agentbench/a2abridge/pkg/config"
	"github.com/agentbench/a2abridge/pkg/logger"
	"github.com/agentbench/a2abridge/pkg/message"
	"github.com/agentbench/a2abridge/pkg/observability"
	"github.com/agentbench/a2abridge/pkg/tool"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Discover DiscoverCmd `cmd:"" help:"Fetch and print the remote agent card."`
	Send     SendCmd     `cmd:"" help:"Send a single message to the remote agent."`
	Chat     ChatCmd     `cmd:"" help:"Interactive conversation with the remote agent."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	Endpoint  string `help:"Agent endpoint URL (overrides config)."`
	AuthToken string `name:"auth-token" help:"Bearer token for the agent (overrides config)." env:"A2A_AUTH_TOKEN"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// loadConfig builds the effective config from the config file and CLI
// overrides. A bare --endpoint is enough to run without a file.
func (cli *CLI) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cli.Config != "" {
		loaded, err := config.LoadFile(cli.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		slog.Info("loaded configuration", "path", cli.Config)
	} else {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}

	if cli.Endpoint != "" {
		cfg.Agent.Endpoint = cli.Endpoint
	}
	if cli.AuthToken != "" {
		cfg.Agent.AuthToken = cli.AuthToken
	}
	if cfg.Agent.Endpoint == "" {
		return nil, fmt.Errorf("agent endpoint is required (--endpoint or agent.endpoint in config)")
	}

	return cfg, nil
}

// setupObservability installs the tracer and, when enabled, serves the
// Prometheus scrape endpoint. Returns a shutdown function.
func setupObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	tp, err := observability.InitGlobalTracer(ctx, cfg.Observability.Tracer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	if cfg.Observability.Metrics.Enabled {
		metrics, err := observability.InitMetrics(ctx, cfg.Observability.Metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		observability.SetGlobalMetrics(metrics)

		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		addr := fmt.Sprintf(":%d", cfg.Observability.Metrics.Port)
		go func() {
			slog.Info("metrics endpoint listening", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	shutdown := func() {
		type shutdownable interface {
			Shutdown(context.Context) error
		}
		if sd, ok := tp.(shutdownable); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sd.Shutdown(ctx); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}
	}
	return shutdown, nil
}

// loadTools reads a YAML tool catalog file.
func loadTools(path string) ([]tool.Descriptor, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools file: %w", err)
	}
	var tools []tool.Descriptor
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to parse tools file: %w", err)
	}
	return tools, nil
}

// writeMetricsExport marshals the export document to a file.
func writeMetricsExport(a *agent.Agent, taskID, path string) error {
	export := a.ExportMetrics(taskID)
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	slog.Info("wrote protocol metrics", "path", path, "records", len(a.Metrics()))
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("a2abridge version %s\n", version)
	return nil
}

// DiscoverCmd fetches and prints the remote agent card.
type DiscoverCmd struct{}

func (c *DiscoverCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	client, err := a2a.NewClient(cfg.A2A(), nil)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.A2A().Timeout)
	defer cancel()

	card, err := client.Discover(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// SendCmd sends a single message and prints the agent's reply.
type SendCmd struct {
	Message    string `arg:"" help:"Message text to send."`
	Tools      string `help:"YAML file with the tool catalog to advertise." type:"path"`
	TaskID     string `name:"task-id" help:"Task correlation ID for the metrics export."`
	MetricsOut string `name:"metrics-out" help:"Write protocol metrics JSON to this file." type:"path"`
}

func (c *SendCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	shutdown, err := setupObservability(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	tools, err := loadTools(c.Tools)
	if err != nil {
		return err
	}

	a, err := agent.New(cfg.A2A(), tools, nil)
	if err != nil {
		return err
	}
	defer a.Stop()

	state := a.InitState(nil)
	reply, _, err := a.NextTurn(message.User(c.Message), state)
	if err != nil {
		return err
	}

	if reply.IsToolCall() {
		out, err := json.MarshalIndent(reply.ToolCalls, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(reply.Content)
	}

	if c.MetricsOut != "" {
		return writeMetricsExport(a, c.TaskID, c.MetricsOut)
	}
	return nil
}

// ChatCmd runs an interactive conversation loop.
type ChatCmd struct {
	Tools      string `help:"YAML file with the tool catalog to advertise." type:"path"`
	TaskID     string `name:"task-id" help:"Task correlation ID for the metrics export."`
	MetricsOut string `name:"metrics-out" help:"Write protocol metrics JSON to this file on exit." type:"path"`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println()
		cancel()
	}()

	shutdown, err := setupObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	tools, err := loadTools(c.Tools)
	if err != nil {
		return err
	}

	a, err := agent.New(cfg.A2A(), tools, nil)
	if err != nil {
		return err
	}
	defer a.Stop()

	if card, err := a.Client().Discover(ctx); err == nil {
		fmt.Printf("Connected to %s", card.Name)
		if card.Version != "" {
			fmt.Printf(" (version %s)", card.Version)
		}
		fmt.Println()
	} else {
		slog.Warn("agent discovery failed, continuing anyway", "error", err)
	}
	fmt.Println("Type a message, or \"exit\" to quit.")

	state := a.InitState(nil)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() || ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, next, err := a.NextTurn(message.User(line), state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		state = next

		if reply.IsToolCall() {
			for _, call := range reply.ToolCalls {
				args, _ := json.Marshal(call.Arguments)
				fmt.Printf("[tool call] %s %s\n", call.Name, args)
			}
		} else {
			fmt.Println(reply.Content)
		}
	}

	summary := a.AggregatedMetrics()
	fmt.Printf("\n%d requests, %d tokens, avg latency %.1f ms, %d errors\n",
		summary.TotalRequests, summary.TotalTokens, summary.AvgLatencyMS, summary.ErrorCount)

	if c.MetricsOut != "" {
		return writeMetricsExport(a, c.TaskID, c.MetricsOut)
	}
	return nil
}

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("a2abridge"),
		kong.Description("Drive a remote A2A agent over JSON-RPC from the command line."),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
