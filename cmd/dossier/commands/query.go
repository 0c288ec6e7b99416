package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/dossier/search"
)

// QueryCmd runs one query through the launcher's search routing
var QueryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Run a query the way the launcher would",
	Long: `Run a query through the launcher's search routing and print the result set.

If the first word matches a plugin prefix the query is scoped to that plugin and
the rest of the text is searched; otherwise every enabled plugin is searched and
built-in commands are listed first. --down moves the selection, --exec runs the
selected result's primary action in the plugin that produced it.

Examples:
  dossier query g weather tomorrow   # Scoped to the plugin with prefix "g"
  dossier query settings --exec      # Run the Settings built-in command`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var (
	queryDown int
	queryExec bool
)

func init() {
	QueryCmd.Flags().IntVar(&queryDown, "down", 0, "Move the selection down N results")
	QueryCmd.Flags().BoolVar(&queryExec, "exec", false, "Execute the selected result's primary action")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	o := s.orchestrator
	o.SetQuery(ctx, strings.Join(args, " "))
	o.Settle()
	for i := 0; i < queryDown; i++ {
		o.HandleKey(ctx, search.KeyDown)
	}

	st := o.State()
	printState(st)

	if !queryExec {
		return nil
	}

	outcome := s.resolver.Run(ctx, st)
	o.Settle()
	switch {
	case outcome.Err != nil:
		pterm.Error.Printfln("%v", outcome.Err)
	case outcome.Skipped:
		pterm.Warning.Println("Nothing to execute")
	case outcome.Message != "":
		pterm.Success.Printfln("%s: %s", outcome.PluginID, outcome.Message)
	default:
		pterm.Success.Printfln("Executed %s on %s", outcome.ActionID, outcome.ResultID)
	}
	return nil
}

func printState(st search.State) {
	header := fmt.Sprintf("%s search", st.Mode)
	if st.Mode == search.ModeScoped {
		header = fmt.Sprintf("%s search in %s: %q", st.Mode, st.ActiveID(), st.Text)
	}
	pterm.DefaultSection.Println(header)

	if st.HTML != "" {
		pterm.Println(st.HTML)
		return
	}
	if len(st.Results) == 0 {
		pterm.Info.Println("No results")
		return
	}

	rows := pterm.TableData{{"", "Title", "Subtitle", "Plugin", "Action"}}
	for i, r := range st.Results {
		marker := ""
		if i == st.Selected {
			marker = "▸"
		}
		actionLabel := ""
		if a, ok := r.PrimaryAction(); ok {
			actionLabel = a.Label
		}
		rows = append(rows, []string{marker, strings.TrimSpace(r.Icon + " " + r.Title), r.Subtitle, r.Origin, actionLabel})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
