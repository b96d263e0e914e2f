package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/andrew/scoutchat/internal/database/models"
	"github.com/andrew/scoutchat/internal/ledger"
)

// HistoryStore exposes the per-request usage events kept by SQLite storage
type HistoryStore interface {
	GetUsageStats(ctx context.Context, identity string, startTime, endTime *time.Time) (*models.UsageStats, error)
	DeleteUsageEventsByIdentity(ctx context.Context, identity string) error
}

// UsageManager handles ledger administration from the command line
type UsageManager struct {
	ledger  *ledger.Ledger
	history HistoryStore
	out     io.Writer
}

// NewUsageManager creates a new usage manager. history may be nil.
func NewUsageManager(l *ledger.Ledger, history HistoryStore, out io.Writer) *UsageManager {
	return &UsageManager{ledger: l, history: history, out: out}
}

// IdentityOutput represents one ledger record in JSON output
type IdentityOutput struct {
	Identity      string  `json:"identity"`
	TotalTokens   int64   `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
	RequestCount  int64   `json:"request_count"`
	LastUsed      string  `json:"last_used"`
	Blocked       bool    `json:"blocked"`
	Remaining     float64 `json:"remaining"`
	Percentage    float64 `json:"percentage"`
}

// ListOutput represents JSON output for the list command
type ListOutput struct {
	Success    bool             `json:"success"`
	Limit      float64          `json:"limit"`
	Identities []IdentityOutput `json:"identities,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// SummaryOutput represents JSON output for the summary command
type SummaryOutput struct {
	Success bool               `json:"success"`
	Summary *ledger.Summary    `json:"summary,omitempty"`
	History *models.UsageStats `json:"history,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ResetOutput represents JSON output for the reset command
type ResetOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func toOutput(e ledger.Entry) IdentityOutput {
	return IdentityOutput{
		Identity:      e.Record.Identity,
		TotalTokens:   e.Record.TotalTokens,
		EstimatedCost: e.Record.EstimatedCost,
		RequestCount:  e.Record.RequestCount,
		LastUsed:      e.Record.LastUsed.Format("2006-01-02 15:04:05"),
		Blocked:       e.Record.Blocked,
		Remaining:     e.Summary.Remaining,
		Percentage:    e.Summary.Percentage,
	}
}

// ListJSON prints every identity in the ledger
func (m *UsageManager) ListJSON(ctx context.Context) error {
	entries, err := m.ledger.List(ctx)
	if err != nil {
		m.printJSON(ListOutput{Success: false, Error: err.Error()})
		return err
	}

	identities := make([]IdentityOutput, len(entries))
	for i, e := range entries {
		identities[i] = toOutput(e)
	}

	m.printJSON(ListOutput{Success: true, Limit: m.ledger.Limit(), Identities: identities})
	return nil
}

// SummaryJSON prints one identity's spend summary and request history stats
func (m *UsageManager) SummaryJSON(ctx context.Context, identity string) error {
	summary, err := m.ledger.Summarize(ctx, identity)
	if err != nil {
		m.printJSON(SummaryOutput{Success: false, Error: err.Error()})
		return err
	}

	output := SummaryOutput{Success: true, Summary: &summary}
	if m.history != nil {
		stats, err := m.history.GetUsageStats(ctx, identity, nil, nil)
		if err != nil {
			m.printJSON(SummaryOutput{Success: false, Error: err.Error()})
			return err
		}
		output.History = stats
	}

	m.printJSON(output)
	return nil
}

// ResetJSON zeroes one identity's spend
func (m *UsageManager) ResetJSON(ctx context.Context, identity string) error {
	if strings.TrimSpace(identity) == "" {
		err := errors.New("identity is required")
		m.printJSON(ResetOutput{Success: false, Error: err.Error()})
		return err
	}

	if _, err := m.ledger.Reset(ctx, identity); err != nil {
		m.printJSON(ResetOutput{Success: false, Error: err.Error()})
		return err
	}

	m.printJSON(ResetOutput{Success: true})
	return nil
}

func (m *UsageManager) printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(m.out, string(data))
}

// Run starts the interactive TUI
func (m *UsageManager) Run(ctx context.Context) error {
	for {
		var action string
		options := []huh.Option[string]{
			huh.NewOption("List identities", "list"),
			huh.NewOption("Reset usage", "reset"),
		}
		if m.history != nil {
			options = append(options, huh.NewOption("Delete request history", "purge"))
		}
		options = append(options, huh.NewOption("Exit", "exit"))

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("ScoutChat - Usage Management").
					Options(options...).
					Value(&action),
			),
		)

		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(m.out, "\nGoodbye!")
				return nil
			}
			return err
		}

		var err error
		switch action {
		case "list":
			err = m.listInteractive(ctx)
		case "reset":
			err = m.resetInteractive(ctx)
		case "purge":
			err = m.purgeInteractive(ctx)
		case "exit":
			fmt.Fprintln(m.out, "\nGoodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}
	}
}

// printEntries writes a human readable ledger listing
func (m *UsageManager) printEntries(entries []ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(m.out, "\nNo usage recorded.")
		return
	}

	fmt.Fprintf(m.out, "\n=== Usage (limit $%.2f) ===\n", m.ledger.Limit())
	for _, e := range entries {
		status := "✅ Active"
		if e.Record.Blocked || e.Summary.Remaining == 0 {
			status = "⛔ Blocked"
		}

		fmt.Fprintf(m.out, "\n%s | %s\n", e.Record.Identity, status)
		fmt.Fprintf(m.out, "   Spent:     $%.4f (%.1f%%)\n", e.Record.EstimatedCost, e.Summary.Percentage)
		fmt.Fprintf(m.out, "   Requests:  %d\n", e.Record.RequestCount)
		fmt.Fprintf(m.out, "   Tokens:    %d\n", e.Record.TotalTokens)
		fmt.Fprintf(m.out, "   Last used: %s\n", e.Record.LastUsed.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(m.out)
}

func (m *UsageManager) listInteractive(ctx context.Context) error {
	entries, err := m.ledger.List(ctx)
	if err != nil {
		return err
	}
	m.printEntries(entries)
	return nil
}

// selectIdentity asks for one identity; it returns "" when cancelled
func (m *UsageManager) selectIdentity(ctx context.Context, title string) (string, error) {
	entries, err := m.ledger.List(ctx)
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		fmt.Fprintln(m.out, "\nNo usage recorded.")
		return "", nil
	}

	// Build options
	options := []huh.Option[string]{huh.NewOption("Cancel", "")}
	for _, e := range entries {
		label := fmt.Sprintf("%s ($%.4f, %d requests)", e.Record.Identity, e.Record.EstimatedCost, e.Record.RequestCount)
		options = append(options, huh.NewOption(label, e.Record.Identity))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}

	if selected == "" {
		fmt.Fprintln(m.out, "\nCancelled.")
	}
	return selected, nil
}

func (m *UsageManager) confirm(ctx context.Context, title, affirmative string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative(affirmative).
				Negative("No, cancel").
				Value(&ok),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	if !ok {
		fmt.Fprintln(m.out, "\nCancelled.")
	}
	return ok, nil
}

func (m *UsageManager) resetInteractive(ctx context.Context) error {
	identity, err := m.selectIdentity(ctx, "Select Identity to Reset")
	if err != nil || identity == "" {
		return err
	}

	ok, err := m.confirm(ctx, fmt.Sprintf("Reset usage for '%s'?", identity), "Yes, reset")
	if err != nil || !ok {
		return err
	}

	if _, err := m.ledger.Reset(ctx, identity); err != nil {
		return err
	}

	fmt.Fprintf(m.out, "\n✅ Usage for '%s' has been reset.\n\n", identity)
	return nil
}

func (m *UsageManager) purgeInteractive(ctx context.Context) error {
	identity, err := m.selectIdentity(ctx, "Select Identity to Purge")
	if err != nil || identity == "" {
		return err
	}

	ok, err := m.confirm(ctx, fmt.Sprintf("Delete ALL request history for '%s'?", identity), "Yes, delete")
	if err != nil || !ok {
		return err
	}

	if err := m.history.DeleteUsageEventsByIdentity(ctx, identity); err != nil {
		return fmt.Errorf("failed to delete usage events: %w", err)
	}

	fmt.Fprintf(m.out, "\n✅ Request history for '%s' has been deleted.\n\n", identity)
	return nil
}
