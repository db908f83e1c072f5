package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/infra/file"
	"cemse-quiz/internal/infra/remote"
	"cemse-quiz/internal/session"
	"github.com/spf13/cobra"
)

// NewTakeCmd runs a quiz attempt in the terminal.
func NewTakeCmd() *cobra.Command {
	var (
		quizPath      string
		remoteURL     string
		timeout       time.Duration
		requireAnswer bool
	)
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a quiz from a YAML file in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			quiz, err := file.ReadQuiz(quizPath)
			if err != nil {
				return err
			}
			if quiz.ID == "" {
				quiz.ID = strings.TrimSuffix(filepath.Base(quizPath), filepath.Ext(quizPath))
			}
			opts := session.Options{RequireAnswer: requireAnswer}
			if remoteURL != "" {
				opts.Strategy = session.StrategyRemote
				opts.Remote = remote.NewClient(remoteURL, timeout)
			}
			return runTake(cmd.Context(), quiz, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&quizPath, "quiz", "", "path to quiz YAML file")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "quiz server base URL for grading (local grading when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "remote submission timeout")
	cmd.Flags().BoolVar(&requireAnswer, "require-answer", false, "block advancing past unanswered questions")
	_ = cmd.MarkFlagRequired("quiz")
	return cmd
}

// syncWriter serialises writes from the input loop and the timer goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// terminal drives a Controller from line-based input. Every block of output is a
// single write so timer lines never split a prompt.
type terminal struct {
	ctrl  *session.Controller
	out   io.Writer
	done  chan domain.Result
	ended chan struct{}
}

func runTake(ctx context.Context, quiz domain.Quiz, opts session.Options, in io.Reader, out io.Writer) error {
	t := &terminal{out: &syncWriter{w: out}, done: make(chan domain.Result, 1), ended: make(chan struct{}, 1)}
	opts.OnComplete = func(res domain.Result) { t.done <- res }
	opts.OnCancel = func() { t.ended <- struct{}{} }
	opts.OnTick = func(remaining int) {
		if remaining > 0 && (remaining <= 10 || remaining%60 == 0) {
			fmt.Fprintf(t.out, "[%ds left]\n", remaining)
		}
	}
	if opts.Strategy == session.StrategyRemote {
		opts.OnSubmitting = func() { fmt.Fprintln(t.out, "submitting...") }
	}

	ctrl, err := session.New(quiz, opts)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	t.ctrl = ctrl

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
	}()

	fmt.Fprintf(t.out, "%s (%d questions)\ncommands: :next :prev :jump N :submit :quit\n", quiz.Title, len(quiz.Questions))
	t.show()

	for {
		// session events take priority over pending input
		select {
		case res := <-t.done:
			if !t.finish(res, lines) {
				return nil
			}
			continue
		case <-t.ended:
			fmt.Fprintln(t.out, "attempt cancelled")
			return nil
		default:
		}

		select {
		case res := <-t.done:
			if !t.finish(res, lines) {
				return nil
			}
		case <-t.ended:
			fmt.Fprintln(t.out, "attempt cancelled")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := t.handle(ctx, strings.TrimSpace(line)); err != nil {
				fmt.Fprintf(t.out, "! %v\n", err)
				continue
			}
			if ctrl.State() == session.StateTaking {
				t.show()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (t *terminal) finish(res domain.Result, lines <-chan string) bool {
	t.printResult(res)
	if !t.afterResult(lines) {
		return false
	}
	t.show()
	return true
}

func (t *terminal) handle(ctx context.Context, line string) error {
	switch {
	case line == ":next" || line == "":
		return t.ctrl.Next(ctx)
	case line == ":prev":
		return t.ctrl.Previous()
	case strings.HasPrefix(line, ":jump "):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, ":jump ")))
		if err != nil {
			return fmt.Errorf("jump needs a question number")
		}
		return t.ctrl.Jump(n - 1)
	case line == ":submit":
		t.ctrl.Submit(ctx)
		return nil
	case line == ":quit":
		return t.ctrl.Cancel()
	}

	w, err := t.ctrl.Render()
	if err != nil {
		return err
	}
	switch w.Kind {
	case session.WidgetChoice:
		return w.Select(optionFor(w, line))
	case session.WidgetCheckbox:
		for _, field := range strings.Fields(line) {
			if err := w.Toggle(optionFor(w, field)); err != nil {
				return err
			}
			if w, err = t.ctrl.Render(); err != nil {
				return err
			}
		}
		return nil
	default:
		return w.Input(line)
	}
}

// optionFor accepts either a 1-based option number or the option label.
func optionFor(w session.Widget, in string) string {
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(w.Options) {
		return w.Options[n-1].Label
	}
	return in
}

func (t *terminal) show() {
	w, err := t.ctrl.Render()
	if err != nil {
		return
	}
	view := t.ctrl.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%d/%d] %s (%d pts)\n", view.Index+1, view.Total, w.Prompt, w.Points)
	switch w.Kind {
	case session.WidgetText:
		if w.Text != "" {
			fmt.Fprintf(&b, "  current: %s\n", w.Text)
		}
	default:
		for i, o := range w.Options {
			mark := " "
			if o.Selected {
				mark = "x"
			}
			fmt.Fprintf(&b, "  %d) [%s] %s\n", i+1, mark, o.Label)
		}
	}
	io.WriteString(t.out, b.String())
}

func (t *terminal) printResult(res domain.Result) {
	verdict := "FAILED"
	if res.Passed {
		verdict = "PASSED"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\nscore %d/%d (%.2f%%) %s in %ds\n", res.Score, res.TotalPoints, res.Percentage, verdict, res.TimeSpentSeconds)
	if res.Degraded {
		b.WriteString("graded locally: submission server unreachable\n")
	}
	io.WriteString(t.out, b.String())
}

// afterResult offers review and retake. It reports whether a new attempt started.
func (t *terminal) afterResult(lines <-chan string) bool {
	for {
		prompt := "[t]retake [q]uit"
		if t.ctrl.Snapshot().CanReview {
			prompt = "[r]eview " + prompt
		}
		fmt.Fprintln(t.out, prompt)

		line, ok := <-lines
		if !ok {
			return false
		}
		switch strings.TrimSpace(line) {
		case "r":
			if err := t.review(); err != nil {
				fmt.Fprintf(t.out, "! %v\n", err)
			}
		case "t":
			if err := t.ctrl.Retake(); err != nil {
				fmt.Fprintf(t.out, "! %v\n", err)
				continue
			}
			return true
		case "q":
			return false
		}
	}
}

func (t *terminal) review() error {
	if err := t.ctrl.Review(); err != nil {
		return err
	}
	defer t.ctrl.CloseReview()

	items, err := t.ctrl.ReviewItems()
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, it := range items {
		mark := "✗"
		if it.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %d. %s\n   yours: %s  correct: %s\n", mark, it.Index+1, it.Question.Text, it.Submitted, it.Correct)
		if it.Explanation != "" {
			fmt.Fprintf(&b, "   %s\n", it.Explanation)
		}
	}
	io.WriteString(t.out, b.String())
	return nil
}
