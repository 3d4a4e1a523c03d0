// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/agent"
	"github.com/Srajan04/Solrock-Coding-Pokemon/internal/metrics"
	solerr "github.com/Srajan04/Solrock-Coding-Pokemon/pkg/errors"
)

// DefaultCLISession is the session used by chat when --session is not set.
const DefaultCLISession = "cli-session"

// maxInputLine bounds a single pasted line.
const maxInputLine = 1 << 20

// quietLevel silences every log record. Failed turns are logged with the
// raw provider error, which must not reach the terminal unless --verbose.
const quietLevel = slog.LevelError + 4

// assistant is the engine surface the chat command drives.
type assistant interface {
	Handle(ctx context.Context, sessionID, message string) (*agent.Response, error)
	ClearSession(ctx context.Context, sessionID string)
	History(ctx context.Context, sessionID string) []agent.HistoryEntry
	Stats() agent.Stats
}

func newChatCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant",
		Long: `Send a single message, or start an interactive session when no message
is given. Pass "-" to read the message from stdin.`,
		RunE: a.runChat,
	}

	cmd.Flags().StringP("session", "s", DefaultCLISession, "session to continue")

	return cmd
}

func (a *app) runChat(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	rt, err := Wire(cfg, metrics.New())
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	sessionID, _ := cmd.Flags().GetString("session")
	out := cmd.OutOrStdout()

	verbose := a.v.GetBool("verbose")
	if !verbose {
		a.level.Set(quietLevel)
	}

	if len(args) > 0 {
		message := strings.Join(args, " ")
		if message == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return solerr.Errorf(solerr.CodeCLIInputInvalid, "reading stdin: %w", err)
			}
			message = string(data)
		}
		var details io.Writer
		if verbose {
			details = cmd.ErrOrStderr()
		}
		return oneShot(cmd.Context(), rt.Engine, out, details, sessionID, message)
	}

	r := newREPL(rt.Engine, cmd.InOrStdin(), out, sessionID, a.level)
	return r.run(cmd.Context())
}

// oneShot answers a single message. A failed turn is reported with the
// user-facing message only; the full error chain goes to details when it is
// non-nil.
func oneShot(ctx context.Context, eng assistant, out, details io.Writer, sessionID, message string) error {
	resp, err := eng.Handle(ctx, sessionID, message)
	if err != nil {
		if details != nil {
			_, _ = fmt.Fprintln(details, dimStyle.Render(err.Error()))
		}
		return userError(err)
	}
	renderResponse(out, resp)
	return nil
}

// userError keeps err's code but replaces its text with UserMessage.
func userError(err error) error {
	code := solerr.CodeOf(err)
	if code == "" {
		code = solerr.CodeAgentLoopFailure
	}
	return solerr.New(code, solerr.UserMessage(err))
}

// repl is the interactive chat loop.
type repl struct {
	eng       assistant
	in        *bufio.Scanner
	out       io.Writer
	sessionID string
	level     *slog.LevelVar
	// base is the level restored when debug mode is switched off.
	base  slog.Level
	debug bool
}

func newREPL(eng assistant, in io.Reader, out io.Writer, sessionID string, level *slog.LevelVar) *repl {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxInputLine)
	return &repl{eng: eng, in: sc, out: out, sessionID: sessionID, level: level, base: level.Level()}
}

func (r *repl) println(s string) {
	_, _ = fmt.Fprintln(r.out, s)
}

// run reads commands and messages until /quit, EOF or ctx is done.
func (r *repl) run(ctx context.Context) error {
	renderBanner(r.out)
	r.println(successStyle.Render("Ready! Type your first question or command."))

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _ = fmt.Fprint(r.out, "\n"+promptStyle.Render("You: "))
		if !r.in.Scan() {
			r.println("")
			return r.in.Err()
		}
		input := strings.TrimSpace(r.in.Text())
		if input == "" {
			continue
		}

		message, quit := r.dispatch(ctx, input)
		if quit {
			r.println(successStyle.Render("Goodbye! Happy coding!"))
			return nil
		}
		if message == "" {
			continue
		}
		r.ask(ctx, message)
	}
}

// dispatch runs REPL commands. It returns the message to send, if any.
func (r *repl) dispatch(ctx context.Context, input string) (message string, quit bool) {
	switch strings.ToLower(input) {
	case "/quit", "/exit":
		return "", true
	case "/clear":
		r.eng.ClearSession(ctx, r.sessionID)
		r.println(successStyle.Render("Memory cleared! Starting fresh conversation."))
		return "", false
	case "/memory":
		renderMemory(r.out, r.eng.History(ctx, r.sessionID))
		return "", false
	case "/stats":
		renderStats(r.out, r.eng.Stats())
		return "", false
	case "/debug":
		r.toggleDebug()
		return "", false
	case "/help":
		renderHelp(r.out)
		return "", false
	case "/code":
		r.println(dimStyle.Render("Enter your code (type END on a new line to finish):"))
		code := r.readUntil("END", false)
		if strings.TrimSpace(code) == "" {
			r.println(warnStyle.Render("No code entered. Try again."))
			return "", false
		}
		return code, false
	}

	if strings.HasPrefix(input, "```") && strings.Count(input, "```") == 1 {
		r.println(dimStyle.Render("Multi-line code detected. Continue pasting (type ``` to end):"))
		return input + "\n" + r.readUntil("```", true), false
	}
	return input, false
}

// readUntil collects lines until one equals terminator after trimming. The
// terminator line is kept when keep is set.
func (r *repl) readUntil(terminator string, keep bool) string {
	var lines []string
	for r.in.Scan() {
		line := r.in.Text()
		if strings.TrimSpace(line) == terminator {
			if keep {
				lines = append(lines, line)
			}
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (r *repl) toggleDebug() {
	r.debug = !r.debug
	if r.debug {
		r.level.Set(slog.LevelDebug)
		r.println(warnStyle.Render("Debug mode: ON"))
		return
	}
	r.level.Set(r.base)
	r.println(warnStyle.Render("Debug mode: OFF"))
}

func (r *repl) ask(ctx context.Context, message string) {
	r.println(dimStyle.Render("Processing..."))
	resp, err := r.eng.Handle(ctx, r.sessionID, message)
	if err != nil {
		r.println(errorStyle.Render(solerr.UserMessage(err)))
		if r.debug {
			r.println(dimStyle.Render(err.Error()))
		}
		return
	}
	renderResponse(r.out, resp)
}
