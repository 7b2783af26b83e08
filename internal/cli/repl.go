package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/hyperjump/intentbot/internal/models"
)

// AskFunc answers one message.
type AskFunc func(ctx context.Context, message string) (*models.ChatResponse, error)

// REPL is an interactive chat loop over a line-oriented reader.
type REPL struct {
	In      io.Reader
	Out     io.Writer
	Ask     AskFunc
	Colors  bool
	Verbose bool // print tag and confidence after each reply
}

func (r *REPL) render(style color.Style, s string) string {
	if !r.Colors {
		return s
	}
	return style.Render(s)
}

// Run reads messages until EOF, "quit" or "exit", or ctx is done. Errors from
// Ask are printed and the loop continues.
func (r *REPL) Run(ctx context.Context) error {
	you := color.New(color.FgCyan, color.OpBold)
	bot := color.New(color.FgGreen, color.OpBold)
	dim := color.New(color.FgGray)
	errStyle := color.New(color.FgRed)

	fmt.Fprintln(r.Out, r.render(dim, `Type a message, or "quit" to exit.`))
	scanner := bufio.NewScanner(r.In)
	for {
		fmt.Fprint(r.Out, r.render(you, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.Out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "quit", "exit":
			return nil
		case "":
			continue
		}
		reply, err := r.Ask(ctx, line)
		if err != nil {
			fmt.Fprintln(r.Out, r.render(errStyle, "Error: "+err.Error()))
			continue
		}
		fmt.Fprintf(r.Out, "%s%s\n", r.render(bot, "bot> "), reply.Response)
		if r.Verbose && reply.Tag != "" {
			fmt.Fprintln(r.Out, r.render(dim, fmt.Sprintf("      [%s %.3f]", reply.Tag, reply.Confidence)))
		}
	}
}
