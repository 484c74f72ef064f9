package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heapquery/internal/service"
	"github.com/heapquery/pkg/model"
	"github.com/heapquery/pkg/utils"
)

var queryForce bool

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <snapshot> <sql>",
	Short: "Run a SQL query against a snapshot's projection",
	Long: `Run an arbitrary SQL query against the relational projection of a
heap snapshot.

If the snapshot has not been decoded yet, query decodes it first and
persists the projection to the companion database (app.heapsnapshot ->
app.db3). Subsequent queries reuse the companion database; --force
rebuilds it from the snapshot.`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	binName := BinName()
	queryCmd.Example = `  # Count objects by type
  ` + binName + ` query app.heapsnapshot "select type, count(*) c from node group by type order by c desc"

  # Who references the largest string?
  ` + binName + ` query app.heapsnapshot "select n.name, e.name_or_index from edge e join node n on n.ordinal = e.from_node where e.to_node_id = (select id from node where type = 'string' order by self_size desc limit 1)"

  # Rebuild the projection before querying
  ` + binName + ` query --force app.heapsnapshot "select count(*) from edge"`

	queryCmd.Flags().BoolVar(&queryForce, "force", false, "Rebuild the projection even if the companion database exists")
}

func runQuery(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	snapshotKey, query := args[0], args[1]

	svc, err := service.New(cfg, log)
	if err != nil {
		return err
	}

	loadResult, result, err := svc.Query(cmd.Context(), snapshotKey, query, queryForce || cfg.Snapshot.Force)
	if err != nil {
		return err
	}

	printLoadSummary(log, loadResult)
	printRows(result)
	log.Debug("%s rows returned", humanize.Comma(int64(result.Len())))

	return nil
}

// printRows prints one result row per line as name=value pairs, the way the
// values come back from the engine: integers plain, text unquoted, NULL as
// "null".
func printRows(result *model.QueryResult) {
	var sb strings.Builder
	for i := range result.Rows {
		sb.Reset()
		for j, col := range result.Columns {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
			sb.WriteByte('=')
			sb.WriteString(model.FormatValue(result.Rows[i][j]))
		}
		fmt.Println(sb.String())
	}
}

func printLoadSummary(log utils.Logger, r *service.LoadResult) {
	if r.Reused {
		log.Info("Using existing projection: %s", r.DatabasePath)
		return
	}
	log.Info("Decoded %s nodes, %s edges (%s of heap) into %s",
		humanize.Comma(int64(r.Nodes)),
		humanize.Comma(int64(r.Edges)),
		humanize.Bytes(r.TotalSelfSize),
		r.DatabasePath)
}
