package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"yashubustudio/cropadvisor/advisor"
)

type recommendOptions struct {
	values      []float64
	interactive bool
	noExplain   bool
	questions   []string
	chat        bool
	jsonOutput  bool
}

func newRecommendCommand(g *globalOptions) *cobra.Command {
	opts := &recommendOptions{values: make([]float64, len(advisor.Fields))}
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the top three crops for one set of readings",
		Long: `Rank the top three crops for one set of soil and climate readings.

Readings come from flags or, with --interactive, from a form. Values outside
the allowed range are clamped. Each crop is explained by the configured LLM
unless --no-explain is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecommend(cmd, g, opts)
		},
	}
	for i, f := range advisor.Fields {
		cmd.Flags().Float64Var(&opts.values[i], f.Key, f.Default, fmt.Sprintf("%s [%s-%s]", f.Label, f.Format(f.Min), f.Format(f.Max)))
	}
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Enter the readings in an interactive form")
	cmd.Flags().BoolVar(&opts.noExplain, "no-explain", false, "Skip the LLM explanations")
	cmd.Flags().StringArrayVar(&opts.questions, "ask", nil, "Follow-up question about the ranking (repeatable)")
	cmd.Flags().BoolVar(&opts.chat, "chat", false, "Read follow-up questions from stdin until an empty line")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

type recommendResult struct {
	Session      *advisor.Session      `json:"session"`
	Explanations []advisor.Explanation `json:"explanations,omitempty"`
	Answers      []advisor.Answer      `json:"answers,omitempty"`
}

func runRecommend(cmd *cobra.Command, g *globalOptions, opts *recommendOptions) error {
	values := append([]float64(nil), opts.values...)
	if opts.interactive {
		var err error
		values, err = runMeasurementForm(cmd.InOrStdin(), cmd.ErrOrStderr(), values)
		if err != nil {
			return err
		}
	}
	m, err := advisor.MeasurementsFromValues(values)
	if err != nil {
		return err
	}

	svc, _, _, err := g.newService(cmd, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := svc.Recommend(ctx, m)
	if err != nil {
		return err
	}
	res := recommendResult{Session: sess}
	if !opts.noExplain {
		res.Explanations = svc.Explain(ctx, sess)
	}
	for _, q := range opts.questions {
		if ans, ok := svc.Ask(ctx, sess, q); ok {
			res.Answers = append(res.Answers, ans)
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		printRanking(out, sess, res.Explanations)
		for _, ans := range res.Answers {
			printAnswer(out, ans)
		}
	}

	if opts.chat {
		return chatLoop(ctx, cmd.InOrStdin(), out, svc, sess)
	}
	return nil
}

// runMeasurementForm asks for every reading, starting from values.
func runMeasurementForm(in io.Reader, out io.Writer, values []float64) ([]float64, error) {
	raw := make([]string, len(advisor.Fields))
	inputs := make([]huh.Field, len(advisor.Fields))
	for i, f := range advisor.Fields {
		raw[i] = f.Format(values[i])
		field := f
		inputs[i] = huh.NewInput().
			Title(f.Label).
			Description(fmt.Sprintf("%s to %s", f.Format(f.Min), f.Format(f.Max))).
			Value(&raw[i]).
			Validate(func(s string) error {
				_, err := field.Parse(s)
				return err
			})
	}

	form := huh.NewForm(huh.NewGroup(inputs...)).
		WithInput(in).
		WithOutput(out)
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("measurement form: %w", err)
	}

	parsed := make([]float64, len(advisor.Fields))
	for i, f := range advisor.Fields {
		v, err := f.Parse(raw[i])
		if err != nil {
			return nil, err
		}
		parsed[i] = v
	}
	return parsed, nil
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, svc *advisor.Service, sess *advisor.Session) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nAsk your question (empty line to quit): ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			return nil
		}
		if ans, ok := svc.Ask(ctx, sess, q); ok {
			printAnswer(out, ans)
		}
	}
}

func printRanking(w io.Writer, sess *advisor.Session, exps []advisor.Explanation) {
	if sess.Empty() {
		fmt.Fprintln(w, "No recommendation available.")
		return
	}
	byLabel := make(map[string]advisor.Explanation, len(exps))
	for _, ex := range exps {
		byLabel[ex.Label] = ex
	}
	for _, r := range sess.Ranked {
		fmt.Fprintf(w, "%s  (%.1f%%)\n", advisor.Title(r), r.Probability*100)
		if ex, ok := byLabel[r.Label]; ok {
			fmt.Fprintln(w, indent(ex.Text, "   "))
		}
		fmt.Fprintln(w)
	}
}

func printAnswer(w io.Writer, ans advisor.Answer) {
	fmt.Fprintf(w, "Q: %s\n%s\n", ans.Question, indent(ans.Text, "   "))
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
