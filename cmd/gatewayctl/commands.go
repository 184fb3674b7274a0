package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/neurobreak/internal/config"
	"github.com/nao1215/neurobreak/pkg/gatewayclient"
	"github.com/nao1215/neurobreak/pkg/middleware"
)

const (
	exitOK = iota
	// exitRejected はバックエンドが非2xxを返したことを表す。
	exitRejected
	// exitFailure は通信失敗や引数エラーなどそれ以外の失敗を表す。
	exitFailure
)

// app はコマンド間で共有するフラグと入出力。
type app struct {
	configPath string
	baseURL    string
	token      string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// execute はargsでCLIを実行し、終了コードを返す。
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		if _, ok := gatewayclient.AsGatewayError(err); ok {
			return exitRejected
		}
		return exitFailure
	}
	return exitOK
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Call the NeuroBreak pipeline and moderation endpoints",
		Long: `gatewayctl sends a single request to a NeuroBreak backend through the
gateway client and prints the JSON result. Backend rejections are printed
as the normalized error message and exit with status 1.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "backend base URL (overrides config)")
	root.PersistentFlags().StringVar(&a.token, "token", "", "bearer token (overrides config)")

	root.AddCommand(a.runCommand())
	root.AddCommand(a.moderateCommand())
	root.AddCommand(a.tokenCommand())
	return root
}

func (a *app) runCommand() *cobra.Command {
	var (
		file string
		req  = gatewayclient.PipelineRequest{
			InferenceConfig: gatewayclient.InferenceConfig{
				ModelID:           "meta-llama/Llama-3.2-3B-Instruct",
				Temperature:       0.7,
				TopP:              0.9,
				TopK:              50,
				MaxTokens:         512,
				RepetitionPenalty: 1.1,
				StopSequences:     []string{},
			},
			GuardConfig: gatewayclient.GuardConfig{
				ModelID:    "meta-llama/Llama-Guard-3-1B",
				Threshold:  0.5,
				Categories: []string{},
			},
		}
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the content pipeline",
		Example: `  gatewayctl run --prompt "hello"
  gatewayctl run --file request.json
  cat request.json | gatewayctl run --file -
  gatewayctl run --file request.json --prompt "overrides the file's prompt"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				prompt := req.Prompt
				if err := a.readJSON(file, &req); err != nil {
					return err
				}
				if cmd.Flags().Changed("prompt") {
					req.Prompt = prompt
				}
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			resp, err := client.RunPipeline(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(resp)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Prompt, "prompt", "p", "", "prompt text")
	flags.StringVarP(&file, "file", "f", "", `read the request JSON from a file ("-" for stdin)`)
	flags.StringVar(&req.InferenceConfig.ModelID, "model", req.InferenceConfig.ModelID, "generation model ID")
	flags.Float64Var(&req.InferenceConfig.Temperature, "temperature", req.InferenceConfig.Temperature, "sampling temperature")
	flags.IntVar(&req.InferenceConfig.MaxTokens, "max-tokens", req.InferenceConfig.MaxTokens, "maximum generated tokens")
	flags.StringSliceVar(&req.InferenceConfig.StopSequences, "stop", req.InferenceConfig.StopSequences, "stop sequences")
	flags.StringVar(&req.GuardConfig.ModelID, "guard-model", req.GuardConfig.ModelID, "guard model ID")
	flags.Float64Var(&req.GuardConfig.Threshold, "threshold", req.GuardConfig.Threshold, "guard block threshold (0-1)")
	flags.BoolVar(&req.GuardConfig.AutoBlock, "auto-block", false, "skip generation when the prompt is blocked")
	flags.StringSliceVar(&req.GuardConfig.Categories, "categories", req.GuardConfig.Categories, "guard categories")
	return cmd
}

func (a *app) moderateCommand() *cobra.Command {
	var (
		file string
		req  = gatewayclient.ModerationRequest{Threshold: 0.5}
	)

	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Run a standalone moderation check",
		Example: `  gatewayctl moderate --text "some text"
  gatewayctl moderate --text "some text" --threshold 0.8 --categories violence,hate
  gatewayctl moderate --file request.json --text "overrides the file's text"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				text := req.Text
				if err := a.readJSON(file, &req); err != nil {
					return err
				}
				if cmd.Flags().Changed("text") {
					req.Text = text
				}
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			result, err := client.ModerateOnly(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(result)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.Text, "text", "t", "", "text to check")
	flags.StringVarP(&file, "file", "f", "", `read the request JSON from a file ("-" for stdin)`)
	flags.Float64Var(&req.Threshold, "threshold", req.Threshold, "block threshold (0-1)")
	flags.StringVar(&req.ModelID, "model", "", "guard model ID")
	flags.StringSliceVar(&req.Categories, "categories", nil, "categories to check")
	return cmd
}

func (a *app) tokenCommand() *cobra.Command {
	var (
		clientID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token signed with backend.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if cfg.Backend.JWTSecret == "" {
				return errors.New("backend.jwt_secret (or JWT_SECRET) is not set")
			}
			token, err := middleware.GenerateJWT(cfg.Backend.JWTSecret, clientID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, token)
			return err
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "gatewayctl", "client ID embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// client は設定とフラグからゲートウェイクライアントを生成する。
func (a *app) client() (*gatewayclient.Client, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	baseURL := cfg.Gateway.BaseURL
	if a.baseURL != "" {
		baseURL = a.baseURL
	}
	token := cfg.Gateway.Token
	if a.token != "" {
		token = a.token
	}

	logger := cfg.Log.NewLogger()
	logger.SetOutput(a.stderr)

	return gatewayclient.New(baseURL,
		gatewayclient.WithBearerToken(token),
		gatewayclient.WithLogger(logger.WithField("component", "gatewayctl")),
	), nil
}

// readJSON はpath（"-"なら標準入力）のJSONをvにデコードする。
func (a *app) readJSON(path string, v any) error {
	var r io.Reader = a.stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("リクエストファイルのオープンに失敗: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("リクエストJSONのパースに失敗: %w", err)
	}
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
