package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agoradev/agora/pkg/config"
	"github.com/agoradev/agora/pkg/storage"
)

var (
	statsTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	statsHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("214"))

	statsBlockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))
)

// StatsCommand creates the stats command
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show forum statistics",
		Action: func(ctx context.Context, c *cli.Command) error {
			return showStats(c.String("config"))
		},
	}
}

func showStats(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close database: %v\n", err)
		}
	}()

	counts := []struct {
		label string
		count func() (int, error)
	}{
		{"users", store.CountUsers},
		{"threads", store.CountActiveThreads},
		{"comments", store.CountActiveComments},
		{"pending reviews", store.CountPendingReviews},
	}

	title := cases.Title(language.English)
	var content strings.Builder
	content.WriteString(statsTitleStyle.Render("Agora Statistics"))
	content.WriteString("\n\n")

	for _, c := range counts {
		n, err := c.count()
		if err != nil {
			return fmt.Errorf("counting %s: %w", c.label, err)
		}
		content.WriteString(fmt.Sprintf("%s %s\n",
			statsHeaderStyle.Render(title.String(c.label)+":"),
			statsValueStyle.Render(fmt.Sprintf("%d", n)),
		))
	}

	fmt.Println(statsBlockStyle.Render(strings.TrimRight(content.String(), "\n")))
	return nil
}
