package modules

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/MockingJay1710/buddyai/internal/command"
)

// Clipboard provides system clipboard commands.
type Clipboard struct{}

func NewClipboard() *Clipboard { return &Clipboard{} }

func (*Clipboard) Name() string { return "clipboard" }

type clipSetInput struct {
	Text string `json:"text" desc:"The text to copy to the clipboard."`
}

type clipGetResult struct {
	Status           string `json:"status"`
	ClipboardContent string `json:"clipboard_content"`
}

type clipSetResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (*Clipboard) Commands() []command.Spec {
	return []command.Spec{
		command.New("clip_get", "Returns the current text content of the system clipboard.",
			func(_ context.Context, _ struct{}) (any, error) {
				content, err := clipboard.ReadAll()
				if err != nil {
					return nil, fmt.Errorf("read clipboard: %w (a copy/paste mechanism such as xclip or xsel may be missing)", err)
				}
				return clipGetResult{Status: "success", ClipboardContent: content}, nil
			}),
		command.New("clip_set", "Copies the given text to the system clipboard.",
			func(_ context.Context, in clipSetInput) (any, error) {
				if err := clipboard.WriteAll(in.Text); err != nil {
					return nil, fmt.Errorf("write clipboard: %w (a copy/paste mechanism such as xclip or xsel may be missing)", err)
				}
				return clipSetResult{Status: "success", Message: "Clipboard content set."}, nil
			}),
	}
}
