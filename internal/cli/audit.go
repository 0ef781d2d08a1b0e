package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/auditlog"
)

var (
	auditClearActor      string
	auditClearCredential string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditReadCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditClearCmd)
	auditClearCmd.Flags().StringVar(&auditClearActor, "actor", "", "Actor performing the clear")
	auditClearCmd.Flags().StringVar(&auditClearCredential, "credential", "", "Override-tier credential")
	auditClearCmd.MarkFlagRequired("actor")
	auditClearCmd.MarkFlagRequired("credential")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for reading, verifying, and clearing the category-segmented\nhash-chained audit log.",
}

var auditReadCmd = &cobra.Command{
	Use:   "read <category>",
	Short: "Print all entries in an audit category",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditRead,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [category]",
	Short: "Verify hash chain integrity",
	Long:  "Walks each category's log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous line. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditClearCmd = &cobra.Command{
	Use:   "clear <category>",
	Short: "Wipe an audit category (leaves a clear record)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditClear,
}

func parseCategory(s string) (auditlog.Category, error) {
	cat := auditlog.Category(s)
	if !cat.Valid() {
		return "", fmt.Errorf("unknown category %q (valid: %v)", s, auditlog.Categories())
	}
	return cat, nil
}

func runAuditRead(cmd *cobra.Command, args []string) error {
	cat, err := parseCategory(args[0])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	n := 0
	for e := range rt.audit.ReadCategory(cat) {
		fmt.Printf("%s  %-8s  %-12s  %s\n", e.Timestamp, e.Outcome, e.ActorID, e.Detail)
		n++
	}
	fmt.Printf("%s\n", dimFmt(fmt.Sprintf("%d entr(ies)", n)))
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	cats := auditlog.Categories()
	if len(args) == 1 {
		cat, err := parseCategory(args[0])
		if err != nil {
			return err
		}
		cats = []auditlog.Category{cat}
	}

	failed := false
	for _, cat := range cats {
		res := rt.audit.VerifyCategory(cat)
		if res.Valid {
			fmt.Printf("%s %-16s %d entries verified\n", allowFmt("OK"), cat, res.Lines)
		} else {
			fmt.Printf("%s %-16s line %d: %s\n", denyFmt("FAILED"), cat, res.ErrorLine, res.Error)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func runAuditClear(cmd *cobra.Command, args []string) error {
	cat, err := parseCategory(args[0])
	if err != nil {
		return err
	}
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	verdict, err := rt.gate.ClearAuditCategory(auditClearActor, auditClearCredential, cat)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		os.Exit(77)
	}
	fmt.Printf("%s category %s cleared\n", allowFmt("OK"), cat)
	return nil
}
