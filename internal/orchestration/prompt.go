package orchestration

import (
	"context"

	"github.com/charmbracelet/huh"
)

// ConsolePrompt asks the operator on the terminal.
type ConsolePrompt struct{}

// ConfirmGreen shows the update instructions and waits for the operator to
// either start the green run or pause the deployment.
func (ConsolePrompt) ConfirmGreen(ctx context.Context, message string) (bool, error) {
	var proceed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Start the green deployment?").
				Description(message).
				Affirmative("Deploy green").
				Negative("Pause here").
				Value(&proceed),
		).Title("Operator update"),
	).RunWithContext(ctx)
	if err != nil {
		return false, err
	}
	return proceed, nil
}
