package main

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/oaspractice/internal/domain"
	"github.com/felixgeelhaar/oaspractice/internal/queue"
)

func TestParseScenarioArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantTopics []domain.Topic
		wantDiff   domain.Difficulty
		wantHide   bool
		wantErr    bool
	}{
		{name: "none", args: nil},
		{name: "repeated topics", args: []string{"-t", "paths", "--topic", "security"}, wantTopics: []domain.Topic{"paths", "security"}},
		{name: "comma topics", args: []string{"--topic=paths,security,paths"}, wantTopics: []domain.Topic{"paths", "security"}},
		{name: "difficulty", args: []string{"-d", "Beginner"}, wantDiff: domain.DifficultyBeginner},
		{name: "hide completed", args: []string{"--hide-completed"}, wantHide: true},
		{name: "unknown topic", args: []string{"-t", "webhooks"}, wantErr: true},
		{name: "unknown difficulty", args: []string{"-d", "expert"}, wantErr: true},
		{name: "missing value", args: []string{"-d"}, wantErr: true},
		{name: "unknown option", args: []string{"--all"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScenarioArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseScenarioArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !slices.Equal(got.filter.Topics, tt.wantTopics) {
				t.Errorf("topics = %v, want %v", got.filter.Topics, tt.wantTopics)
			}
			if got.filter.Difficulty != tt.wantDiff {
				t.Errorf("difficulty = %q, want %q", got.filter.Difficulty, tt.wantDiff)
			}
			if got.hideCompleted != tt.wantHide {
				t.Errorf("hideCompleted = %v, want %v", got.hideCompleted, tt.wantHide)
			}
		})
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "[░░░░]"},
		{0.5, "[██░░]"},
		{1, "[████]"},
		{1.5, "[████]"},
		{-1, "[░░░░]"},
	}
	for _, tt := range tests {
		if got := renderProgressBar(tt.value, 4); got != tt.want {
			t.Errorf("renderProgressBar(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(3, 0); got != 0 {
		t.Errorf("ratio(3, 0) = %v, want 0", got)
	}
	if got := ratio(5, 10); got != 0.5 {
		t.Errorf("ratio(5, 10) = %v, want 0.5", got)
	}
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 4, 5, 0, time.Local)

	completed := formatEvent(&queue.ProgressMessage{
		Type:           domain.EventScenarioCompleted,
		ScenarioID:     "first-endpoint",
		RecordedAt:     at,
		Points:         8,
		CompletedCount: 1,
		TotalPoints:    10,
	})
	if !strings.Contains(completed, "first-endpoint completed (+8 pts") {
		t.Errorf("completed event = %q", completed)
	}

	recorded := formatEvent(&queue.ProgressMessage{
		Type:       domain.EventSubmissionRecorded,
		ScenarioID: "first-endpoint",
		RecordedAt: at,
		Score:      2,
		MaxScore:   10,
		Attempts:   1,
	})
	if !strings.HasPrefix(recorded, "15:04:05") || !strings.Contains(recorded, "scored 2/10 (attempt 1") {
		t.Errorf("recorded event = %q", recorded)
	}
}
