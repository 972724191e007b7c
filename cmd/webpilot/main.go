package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"webpilot/internal/application/port/input"
	"webpilot/internal/di"
	"webpilot/internal/domain/entity"
	"webpilot/internal/infrastructure/env"
	"webpilot/internal/infrastructure/historystore"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	green = color.New(color.FgGreen, color.Bold).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, red("Error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webpilot",
		Short:         "Drive a web browser with a language model to complete tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newReplayCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		startURL string
		maxSteps int
		headless bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task; reads it from stdin when no argument is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				fmt.Println("\nEnter a task for the agent:")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read task: %w", err)
				}
				task = strings.TrimSpace(line)
			}
			if task == "" {
				return fmt.Errorf("task is empty")
			}

			cfg := di.LoadConfig(env.NewEnvService())
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if maxSteps > 0 {
				cfg.Control.MaxSteps = maxSteps
			}
			if cfg.OpenRouterAPIKey == "" || cfg.OpenRouterModel == "" {
				return fmt.Errorf("OPENROUTER_API_KEY and OPENROUTER_MODEL_NAME must be set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			container, err := di.NewContainer(ctx, cfg, task)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer container.Close()
			stopOnSignal(cancel, container.Runner)

			container.Logger.Info("Task started", "task", task)
			history, err := container.Runner.Run(ctx, input.RunOptions{
				Task:       task,
				MaxSteps:   cfg.Control.MaxSteps,
				InitialURL: startURL,
			})
			if err != nil {
				container.Logger.Error("Task failed", "error", err)
				return err
			}

			container.Logger.Info("Task finished",
				"run_id", history.RunID,
				"steps", history.NumberOfSteps(),
				"input_tokens", history.TotalInputTokens(),
				"duration", history.TotalDuration(),
			)
			fmt.Println(gray("history run id: " + history.RunID))
			if ok, _ := history.IsSuccessful(); !ok {
				return fmt.Errorf("task did not complete successfully")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&startURL, "url", "", "URL to open before the first step")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step budget (default MAX_STEPS)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall run timeout")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		runID        string
		retries      int
		skipFailures bool
		delay        time.Duration
		headless     bool
	)
	cmd := &cobra.Command{
		Use:   "replay <history-file>",
		Short: "Re-execute the actions of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := historystore.Load(args[0], runID)
			if err != nil {
				return err
			}

			cfg := di.LoadConfig(env.NewEnvService())
			cfg.HistoryFile = ""
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			container, err := di.NewContainer(ctx, cfg, history.Task)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer container.Close()
			stopOnSignal(cancel, container.Runner)

			results, err := container.Runner.Replay(ctx, history, input.ReplayOptions{
				MaxRetries:   retries,
				SkipFailures: skipFailures,
				DelayBetween: delay,
			})
			printReplay(results)
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id to replay (default: last run in the file)")
	cmd.Flags().IntVar(&retries, "retries", 3, "attempts per step")
	cmd.Flags().BoolVar(&skipFailures, "skip-failures", false, "continue after a step fails")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between steps")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	return cmd
}

// stopOnSignal asks the runner to stop at the next checkpoint on the first
// interrupt and cancels the context on the second.
func stopOnSignal(cancel context.CancelFunc, runner input.AgentRunner) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, "\nstopping after the current step, interrupt again to abort")
		runner.Stop()
		<-sig
		cancel()
	}()
}

func printReplay(results []entity.ActionResult) {
	for i, r := range results {
		switch {
		case r.Error != "":
			fmt.Printf("%s %d: %s\n", red("✗"), i+1, r.Error)
		case r.ExtractedContent != "":
			fmt.Printf("%s %d: %s\n", green("✓"), i+1, r.ExtractedContent)
		default:
			fmt.Printf("%s %d\n", green("✓"), i+1)
		}
	}
}
