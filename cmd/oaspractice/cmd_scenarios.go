package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/catalog"
	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/ledger"
	"github.com/felixgeelhaar/oaspractice/internal/practice"
)

const requestTimeout = 30 * time.Second

// scenarioArgs are the options of 'oaspractice scenarios'
type scenarioArgs struct {
	filter        catalog.Filter
	hideCompleted bool
}

// parseScenarioArgs reads -t/--topic (repeatable or comma separated),
// -d/--difficulty and --hide-completed
func parseScenarioArgs(args []string) (scenarioArgs, error) {
	var out scenarioArgs
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")

		needValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "-t", "--topic", "--topics":
			v, err := needValue()
			if err != nil {
				return out, err
			}
			for _, t := range strings.Split(v, ",") {
				topic := domain.Topic(strings.TrimSpace(t))
				if !topic.Valid() {
					return out, fmt.Errorf("unknown topic %q (see 'oaspractice topics')", t)
				}
				if !slices.Contains(out.filter.Topics, topic) {
					out.filter.Topics = append(out.filter.Topics, topic)
				}
			}
		case "-d", "--difficulty":
			v, err := needValue()
			if err != nil {
				return out, err
			}
			d := domain.Difficulty(strings.ToLower(v))
			if !d.Valid() {
				return out, fmt.Errorf("unknown difficulty %q (valid: beginner, intermediate, advanced)", v)
			}
			out.filter.Difficulty = d
		case "--hide-completed":
			out.hideCompleted = true
		default:
			return out, fmt.Errorf("unknown option: %s", arg)
		}
	}
	return out, nil
}

// cmdScenarios lists scenarios
func cmdScenarios(args []string) error {
	opts, err := parseScenarioArgs(args)
	if err != nil {
		return err
	}

	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ctrl := s.Controller
	ctrl.SetShowCompleted(!opts.hideCompleted)
	if err := ctrl.SetFilter(ctx, opts.filter); err != nil {
		return err
	}

	visible := ctrl.Visible()
	if len(visible) == 0 {
		fmt.Println("No scenarios match the filters.")
		return nil
	}

	fmt.Println("Scenarios:")
	for _, sc := range visible {
		fmt.Printf("  %s %-28s %-12s %3d pts  %s\n", statusMark(s.Ledger, sc.ID), sc.ID, sc.Difficulty, sc.Points, sc.Title)
	}
	fmt.Println()
	fmt.Println("Use 'oaspractice show <id>' for details")
	return nil
}

// cmdTopics lists topics with scenario counts
func cmdTopics() error {
	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	topics, err := s.Client.ListTopics(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Topics:")
	for _, t := range topics {
		fmt.Printf("  %-20s %2d  %s\n", t.ID, t.ScenarioCount, t.Name)
	}
	return nil
}

// cmdShow prints a scenario's instructions and requirements
func cmdShow(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("scenario ID required (e.g., oaspractice show first-endpoint)")
	}
	id := args[0]

	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	d, err := s.Client.GetScenario(ctx, id)
	if err != nil {
		return notFoundHint(ctx, s.Controller, id, err)
	}

	fmt.Printf("Scenario: %s\n\n", d.Title)
	fmt.Printf("ID:         %s\n", d.ID)
	fmt.Printf("Difficulty: %s\n", d.Difficulty)
	fmt.Printf("Topics:     %s\n", joinTopics(d.Topics))
	fmt.Printf("Points:     %d (~%d min)\n", d.Points, d.EstimatedMinutes)
	if rec, ok := s.Ledger.Record(d.ID); ok && rec.Attempts > 0 {
		fmt.Printf("Progress:   best %d/%d in %d attempts\n", rec.BestScore, rec.MaxScore, rec.Attempts)
	}
	fmt.Printf("\nInstructions:\n%s\n", strings.TrimSpace(d.Instructions))

	fmt.Println("\nRequirements:")
	for _, r := range d.Requirements {
		fmt.Printf("  - %s (%d pts)\n", r.Description, r.Points)
		if r.Hint != "" {
			fmt.Printf("    hint: %s\n", r.Hint)
		}
	}

	fmt.Printf("\nStarter code:\n%s\n", d.StarterCode)
	return nil
}

// cmdSubmit checks a solution file and records the result
func cmdSubmit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: oaspractice submit <id> <file>")
	}
	id, path := args[0], args[1]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read solution: %w", err)
	}

	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := requireDaemon(s.Config); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	ctrl := s.Controller
	if err := ctrl.Select(ctx, id); err != nil {
		return notFoundHint(ctx, ctrl, id, err)
	}
	defer ctrl.Close()

	if err := ctrl.Editor().Edit(ctx, string(content)); err != nil {
		return err
	}

	sub, err := ctrl.Submit(ctx)
	if sub == nil {
		return err
	}
	printSubmission(sub)
	if err != nil {
		return fmt.Errorf("progress not saved: %w", err)
	}
	return nil
}

func printSubmission(sub *practice.Submission) {
	r := sub.Result
	o := sub.Outcome

	fmt.Printf("Score: %d/%d %s\n", r.Score, r.MaxScore, renderProgressBar(ratio(r.Score, r.MaxScore), 20))
	fmt.Println(r.Feedback)

	if len(r.SyntaxErrors) > 0 {
		fmt.Println("\nSyntax errors:")
		for _, e := range r.SyntaxErrors {
			fmt.Printf("  line %d, column %d: %s\n", e.Line, e.Column, e.Message)
		}
	}

	if len(r.Results) > 0 {
		fmt.Println("\nRequirements:")
		for _, res := range r.Results {
			mark := "✗"
			if res.Passed {
				mark = "✓"
			}
			fmt.Printf("  %s %-24s %d/%d  %s\n", mark, res.RequirementID, res.PointsEarned, res.PointsPossible, res.Message)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range r.Warnings {
			fmt.Printf("  ! %s: %s\n", w.Path, w.Message)
		}
	}

	fmt.Println()
	switch {
	case o.NewCompletion:
		fmt.Printf("Scenario completed! +%d points\n", o.Credited)
	case o.Credited > 0:
		fmt.Printf("New best score! +%d points\n", o.Credited)
	}
	fmt.Printf("Total: %d points, %d completed (attempt %d)\n", o.Totals.TotalPoints, o.Totals.CompletedCount, o.Record.Attempts)
}

// cmdProgress shows points and per-scenario records
func cmdProgress() error {
	s, err := openSession(context.Background())
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.Ledger.Snapshot()
	fmt.Println("Progress")
	fmt.Println("========")
	fmt.Printf("Total points:  %d\n", snap.TotalPoints)
	fmt.Printf("Completed:     %d\n", snap.CompletedCount)
	if !snap.LastActivity.IsZero() {
		fmt.Printf("Last activity: %s\n", snap.LastActivity.Local().Format(time.DateTime))
	}

	records := make([]ledger.Record, 0, len(snap.Scenarios))
	for _, rec := range snap.Scenarios {
		if rec.Attempts > 0 {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		fmt.Println("\nNo submissions yet. Start with 'oaspractice practice'.")
		return nil
	}
	slices.SortFunc(records, func(a, b ledger.Record) int { return strings.Compare(a.ScenarioID, b.ScenarioID) })

	fmt.Println("\nScenarios:")
	for _, rec := range records {
		mark := " "
		if rec.Completed {
			mark = "✓"
		}
		fmt.Printf("  %s %-28s %s %d/%d (%d attempts)\n", mark, rec.ScenarioID,
			renderProgressBar(ratio(rec.BestScore, rec.MaxScore), 20), rec.BestScore, rec.MaxScore, rec.Attempts)
	}
	return nil
}

// notFoundHint adds a "did you mean" suggestion to not-found errors
func notFoundHint(ctx context.Context, ctrl *practice.Controller, id string, err error) error {
	if !errors.Is(err, domain.ErrScenarioNotFound) {
		return err
	}
	if loadErr := ctrl.Refresh(ctx); loadErr == nil {
		if guess := ctrl.Catalog().Suggest(id); guess != "" {
			return fmt.Errorf("scenario not found: %s (did you mean %s?)", id, guess)
		}
	}
	return fmt.Errorf("scenario not found: %s", id)
}

func statusMark(l *ledger.Ledger, id string) string {
	rec, ok := l.Record(id)
	switch {
	case ok && rec.Completed:
		return "✓"
	case ok && rec.Attempts > 0:
		return "~"
	default:
		return " "
	}
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func joinTopics(topics []domain.Topic) string {
	parts := make([]string, len(topics))
	for i, t := range topics {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
