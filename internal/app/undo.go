package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/cleanup"
	"github.com/blackwell-systems/macsweep/internal/output"
	"github.com/blackwell-systems/macsweep/internal/source"
)

var (
	undoList bool

	undoCmd = &cobra.Command{
		Use:   "undo [manifest-id]",
		Short: "Reinstall packages removed by a previous cleanup",
		Long: `Undo restores the packages recorded in a cleanup manifest: the most
recent one by default, or the one named on the command line. Each
package is restored independently; one failed reinstall does not stop
the others. Manifests are kept after an undo, so the operation can be
retried.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUndo,
	}
)

func init() {
	undoCmd.Flags().BoolVar(&undoList, "list", false, "list available manifests instead of restoring")
}

func runUndo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	if undoList {
		manifests, err := cleanup.ListManifests(cfg.BackupDir)
		if err != nil {
			return err
		}
		if len(manifests) == 0 {
			fmt.Println("No cleanup manifests found.")
			return nil
		}
		fmt.Print(output.RenderManifestTable(manifests))
		return nil
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	engine := newEngine(cfg, st, source.DefaultRegistry(), log)
	report, err := engine.Undo(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderUndoReport(report))
	return nil
}
