package cmd

import (
	"github.com/spf13/cobra"

	"github.com/heapquery/internal/service"
)

var loadForce bool

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <snapshot>",
	Short: "Decode a snapshot and persist its relational projection",
	Long: `Decode a heap snapshot and persist its relational projection to the
companion database without running a query.

The companion database is a plain SQLite file (app.heapsnapshot ->
app.db3) that any compatible relational browser can open afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	binName := BinName()
	loadCmd.Example = `  # Decode once, browse later
  ` + binName + ` load app.heapsnapshot

  # Rebuild after replacing the snapshot file
  ` + binName + ` load --force app.heapsnapshot`

	loadCmd.Flags().BoolVar(&loadForce, "force", false, "Rebuild the projection even if the companion database exists")
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}

	result, err := svc.Load(cmd.Context(), args[0], loadForce || cfg.Snapshot.Force)
	if err != nil {
		return err
	}

	printLoadSummary(log, result)
	return nil
}
