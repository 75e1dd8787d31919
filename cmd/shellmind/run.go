package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"shellmind/internal/ux"
)

// runInstruction executes one instruction through the full loop and
// prints the answer. Confirmation prompts still go to the terminal.
func runInstruction(cmd *cobra.Command, args []string) error {
	confirmer := newTerminalConfirmer(os.Stdin, os.Stdout)
	a, err := newApp(confirmer)
	if err != nil {
		return err
	}
	defer a.close()

	instruction := strings.Join(args, " ")

	spinner := ux.NewSpinner(os.Stdout, "thinking")
	confirmer.SetSpinner(spinner)
	spinner.Start()
	answer, runErr := a.loop.Run(cmd.Context(), instruction)
	spinner.Stop()

	if runErr != nil {
		if answer != "" {
			fmt.Println(ux.MutedStyle.Render(answer))
		}
		return runErr
	}
	fmt.Println(ux.AnswerStyle.Render(answer))
	return nil
}
