package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/auditlog"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health and audit chain integrity",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	queued, err := rt.queue.Len()
	if err != nil {
		return err
	}
	fmt.Printf("data dir:  %s\n", rt.cfg.DataDir)
	fmt.Printf("override:  %s\n", rt.gate.Machine().Describe())
	fmt.Printf("queued:    %d command(s)\n", queued)

	for _, cat := range auditlog.Categories() {
		res := rt.audit.VerifyCategory(cat)
		if res.Valid {
			fmt.Printf("audit %-16s %s (%d entries)\n", cat, allowFmt("intact"), res.Lines)
		} else {
			fmt.Printf("audit %-16s %s at line %d\n", cat, denyFmt("broken"), res.ErrorLine)
		}
	}
	return nil
}
