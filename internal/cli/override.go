package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/model"
)

var (
	overrideActor      string
	overrideCredential string

	overrideSampleFile string
	overrideRecipient  string
	overrideAuthorized bool
)

func init() {
	rootCmd.AddCommand(overrideCmd)
	overrideCmd.AddCommand(overrideStatusCmd)
	overrideCmd.AddCommand(overrideResetCmd)
	overrideCmd.AddCommand(overrideTransferCmd)

	overrideResetCmd.Flags().StringVar(&overrideActor, "actor", "", "Actor performing the reset")
	overrideResetCmd.Flags().StringVar(&overrideCredential, "credential", "", "Override-tier credential")
	overrideResetCmd.MarkFlagRequired("actor")
	overrideResetCmd.MarkFlagRequired("credential")

	overrideTransferCmd.Flags().StringVar(&overrideActor, "actor", "", "Actor requesting the transfer")
	overrideTransferCmd.Flags().StringVar(&overrideCredential, "credential", "", "Sovereign-tier credential")
	overrideTransferCmd.Flags().StringVar(&overrideSampleFile, "sample-file", "", "File holding the signature sample")
	overrideTransferCmd.Flags().StringVar(&overrideRecipient, "recipient", "", "Successor receiving control")
	overrideTransferCmd.Flags().BoolVar(&overrideAuthorized, "authorized", false, "Explicitly authorize the transfer")
	overrideTransferCmd.MarkFlagRequired("actor")
	overrideTransferCmd.MarkFlagRequired("recipient")
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Inspect and control the override tier",
}

var overrideStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current override tier",
	RunE:  runOverrideStatus,
}

var overrideResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force the tier back to normal (audited)",
	Long:  "Drops the override tier back to normal from any state, clearing a\ncompleted transfer. Requires an override-tier credential; the reset is\nrecorded in the override audit category.",
	RunE:  runOverrideReset,
}

var overrideTransferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer platform control to a named successor",
	Long:  "Submits a control transfer through the authorization gate. Requires a\nsovereign credential, an enrolled signature sample, and the explicit\n--authorized flag.",
	RunE:  runOverrideTransfer,
}

func runOverrideStatus(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	fmt.Println(rt.gate.Machine().Describe())
	return nil
}

func runOverrideReset(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	verdict, err := rt.gate.ResetTier(overrideActor, overrideCredential)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		os.Exit(77)
	}
	fmt.Printf("%s tier reset to %s\n", allowFmt("OK"), verdict.TierName)
	return nil
}

func runOverrideTransfer(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	credential := overrideCredential
	if credential == "" {
		credential = os.Getenv("COMMANDGATE_CREDENTIAL")
	}

	var sample []byte
	if overrideSampleFile != "" {
		sample, err = os.ReadFile(overrideSampleFile)
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
	}

	verdict, err := rt.gate.Submit(model.Request{
		ActorID:            overrideActor,
		Role:               model.RoleAdmin,
		CommandText:        fmt.Sprintf("transfer control to %s", overrideRecipient),
		Credential:         credential,
		SignatureSample:    sample,
		RequestedTier:      model.TierSovereignOverride,
		TransferAuthorized: overrideAuthorized,
		TransferRecipient:  overrideRecipient,
	})
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		fmt.Printf("%s\n", dimFmt(fmt.Sprintf("request %s, tier %s", verdict.RequestID, verdict.TierName)))
		os.Exit(77)
	}
	fmt.Printf("%s control transferred to %s\n", allowFmt("OK"), overrideRecipient)
	fmt.Printf("%s\n", dimFmt(fmt.Sprintf("request %s, tier %s", verdict.RequestID, verdict.TierName)))
	return nil
}
