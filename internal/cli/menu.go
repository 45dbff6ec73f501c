package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragqa/internal/tui"
)

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Open the interactive menu",
		Long: `Opens a terminal menu to ingest documents and ask questions.

Controls:
  ↑/↓, 1-3 - Choose an action
  Enter    - Select / Ask
  Tab      - Change top-k
  Esc      - Back to the menu
  Ctrl+C   - Quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd)
		},
	}
}

func (a *app) runMenu(cmd *cobra.Command) error {
	svc, closeStore, err := buildService(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	m := tui.New(cmd.Context(), svc, a.cfg.Retrieval.TopK)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
