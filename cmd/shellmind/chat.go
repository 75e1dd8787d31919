package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shellmind/internal/agent"
	"shellmind/internal/logging"
	"shellmind/internal/memory"
	"shellmind/internal/ux"
	"shellmind/internal/workspace"
)

// runChat starts the interactive session. Each line of input goes
// through the full loop; /reset archives the window and starts a
// fresh session, /quit exits.
func runChat(cmd *cobra.Command, args []string) error {
	confirmer := newTerminalConfirmer(os.Stdin, os.Stdout)
	a, err := newApp(confirmer)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Flush the session window before dying on Ctrl-C. The prompt
	// read blocks on stdin, so the handler exits the process itself
	// rather than waiting for the loop to notice the cancellation.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stdout)
		cancel()
		a.close()
		logging.CloseAll()
		logging.CloseAudit()
		os.Exit(130)
	}()

	fmt.Println(ux.AnswerStyle.Render(fmt.Sprintf("%s %s", a.cfg.Name, a.cfg.Version)))
	fmt.Println(ux.MutedStyle.Render("Type a request, /reset to clear the session, /quit to exit."))

	// A task interrupted by a previous exit picks up where it left off.
	var task *workspace.TaskWorkspace
	if resumed, err := workspace.Resume(activeTaskKey, a.store); err != nil {
		logger.Debug("workspace resume failed", zap.Error(err))
	} else if resumed != nil && !resumed.Done() {
		task = resumed
		fmt.Println(ux.MutedStyle.Render("Resuming task: " + task.Goal()))
	}

	// Every executed step lands in the active task's scratchpad so
	// /status shows real progress.
	a.loop.SetStepObserver(func(r agent.StepResult) {
		if task == nil || task.Done() {
			return
		}
		summary := clip(fmt.Sprint(r.Output), 120)
		if r.Err != nil {
			summary = clip(r.Err.Error(), 120)
		}
		if err := task.RecordStep(r.Step.Tool, summary, r.Status == agent.StepSuccess); err != nil {
			logger.Debug("workspace step record failed", zap.Error(err))
		}
	})

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(ux.PromptStyle.Render("> "))
		line, readErr := reader.ReadString('\n')
		input := strings.TrimSpace(line)

		if readErr != nil && input == "" {
			fmt.Println()
			return nil
		}
		if input == "" {
			continue
		}

		switch input {
		case "/quit", "//quit", "/exit":
			fmt.Println(ux.MutedStyle.Render("Goodbye."))
			return nil
		case "/reset":
			if err := a.resetSession(ctx); err != nil {
				fmt.Println(ux.ErrorStyle.Render("Reset failed: " + err.Error()))
				continue
			}
			task = nil
			fmt.Println(ux.MutedStyle.Render("Session cleared. Window archived to long-term memory."))
			continue
		case "/status":
			printWorkspace(task)
			continue
		}

		task = a.trackTask(ctx, task, input)

		spinner := ux.NewSpinner(os.Stdout, "thinking")
		confirmer.SetSpinner(spinner)
		spinner.Start()
		answer, runErr := a.loop.Run(ctx, input)
		spinner.Stop()
		confirmer.SetSpinner(nil)

		recordOutcome(task, answer, runErr)

		if runErr != nil {
			if errors.Is(runErr, context.Canceled) {
				return nil
			}
			fmt.Println(ux.ErrorStyle.Render("Error: " + runErr.Error()))
			if answer != "" {
				fmt.Println(ux.MutedStyle.Render(answer))
			}
			continue
		}
		fmt.Println(ux.AnswerStyle.Render(answer))
	}
}

// activeTaskKey is the stable workspace id for the task in progress,
// so an interrupted task survives process restarts.
const activeTaskKey = "active-task"

// trackTask decides whether the input continues the active task or
// opens a new one, and persists the transition either way.
func (a *app) trackTask(ctx context.Context, task *workspace.TaskWorkspace, input string) *workspace.TaskWorkspace {
	if task != nil && !task.Done() {
		continues, err := a.loop.ContinuesTask(ctx, task.Goal(), input)
		if err != nil {
			logger.Debug("continuation check failed", zap.Error(err))
		}
		if continues {
			_ = task.Transition(workspace.StateExecuting)
			return task
		}
		_ = task.Transition(workspace.StateCompleted)
	}
	fresh := workspace.New(activeTaskKey, input, a.store)
	_ = fresh.Transition(workspace.StateExecuting)
	return fresh
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// recordOutcome notes the turn result against the active task.
func recordOutcome(task *workspace.TaskWorkspace, answer string, runErr error) {
	if task == nil || task.Done() {
		return
	}
	if runErr != nil {
		_ = task.AddNote("turn failed: " + runErr.Error())
		if errors.Is(runErr, agent.ErrMaxReplans) || errors.Is(runErr, agent.ErrRepetition) {
			_ = task.Transition(workspace.StateFailed)
		} else {
			_ = task.Transition(workspace.StateWaitingForNextStep)
		}
		return
	}
	if answer != "" {
		_ = task.AddNote(clip(answer, 200))
	}
	_ = task.Transition(workspace.StateWaitingForNextStep)
}

func printWorkspace(task *workspace.TaskWorkspace) {
	if task == nil {
		fmt.Println(ux.MutedStyle.Render("No active task."))
		return
	}
	fmt.Println(ux.PlanStyle.Render(fmt.Sprintf("Task: %s [%s]", task.Goal(), task.State())))
	for _, step := range task.Steps() {
		mark := ux.SuccessStyle.Render("ok")
		if !step.Success {
			mark = ux.ErrorStyle.Render("failed")
		}
		fmt.Printf("  %s %s: %s\n", mark, step.Tool, step.Summary)
	}
}

// resetSession archives the current window and starts a new manager
// under a fresh session id.
func (a *app) resetSession(ctx context.Context) error {
	if err := a.session.Flush(ctx); err != nil {
		return err
	}
	a.session = memory.NewManager("", a.cfg.Memory.MaxSessionMessages, a.store)
	a.sessionID = a.session.SessionID()
	a.loop.SetSession(a.session)
	return nil
}
