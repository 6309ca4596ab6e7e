package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/macsweep/internal/output"
)

var (
	exportFormat string
	exportOutput string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export the full inventory as JSON or CSV",
		RunE:  runExport,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json, csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	analysis, err := newAnalyzer(st).Analyze(thresholdsFromConfig(cfg), time.Now())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "json":
		return output.ExportJSON(w, analysis)
	case "csv":
		return output.ExportCSV(w, analysis)
	}
	return fmt.Errorf("unknown format %q (known: json, csv)", exportFormat)
}
