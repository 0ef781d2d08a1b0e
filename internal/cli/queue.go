package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	queueClearActor      string
	queueClearCredential string
)

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueReplayCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueClearCmd.Flags().StringVar(&queueClearActor, "actor", "", "Actor performing the clear")
	queueClearCmd.Flags().StringVar(&queueClearCredential, "credential", "", "Override-tier credential")
	queueClearCmd.MarkFlagRequired("actor")
	queueClearCmd.MarkFlagRequired("credential")
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Command queue operations",
}

var queueReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "List queued commands in submission order",
	RunE:  runQueueReplay,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe the command queue (audited)",
	Long:  "Removes every queued command. Requires an override-tier credential;\nthe wipe is recorded in the audit trail with the clearing actor.",
	RunE:  runQueueClear,
}

func runQueueReplay(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	n := 0
	for c := range rt.queue.Replay() {
		fmt.Printf("%6d  %s  %-12s  %s\n", c.ID, c.SubmittedAt.Format("2006-01-02 15:04:05"), c.ActorID, c.CommandText)
		n++
	}
	fmt.Printf("%s\n", dimFmt(fmt.Sprintf("%d command(s)", n)))
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	verdict, err := rt.gate.ClearQueue(queueClearActor, queueClearCredential)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		os.Exit(77)
	}
	fmt.Printf("%s queue cleared\n", allowFmt("OK"))
	return nil
}
