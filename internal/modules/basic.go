package modules

import (
	"context"
	"time"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// Basic provides the trivial smoke-test commands.
type Basic struct{}

func NewBasic() *Basic { return &Basic{} }

func (*Basic) Name() string { return "basic" }

type tellTimeResult struct {
	Status      string `json:"status"`
	CurrentTime string `json:"current_time"`
}

type greetInput struct {
	Name string `json:"name" desc:"Name of the person to greet." default:"Guest"`
}

type greetResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (*Basic) Commands() []command.Spec {
	return []command.Spec{
		command.New("tell_time", "Returns the agent's current local time.",
			func(_ context.Context, _ struct{}) (any, error) {
				return tellTimeResult{
					Status:      "success",
					CurrentTime: time.Now().Format(time.RFC3339),
				}, nil
			}),
		command.New("greet", "Greets a user by name.",
			func(_ context.Context, in greetInput) (any, error) {
				return greetResult{
					Status:  "success",
					Message: "Hello, " + in.Name + "!",
				}, nil
			}),
	}
}
