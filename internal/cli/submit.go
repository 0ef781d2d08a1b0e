package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/powerstream/commandgate/internal/model"
)

var (
	submitActor      string
	submitRole       string
	submitCredential string
	submitSampleFile string
	submitTier       string
	submitAuthorized bool
	submitRecipient  string

	allowFmt = color.New(color.FgGreen, color.Bold).SprintFunc()
	denyFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	dimFmt   = color.New(color.Faint).SprintFunc()
)

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitActor, "actor", "", "Actor identifier")
	submitCmd.Flags().StringVar(&submitRole, "role", "guest", "Actor role (admin, operator, guest)")
	submitCmd.Flags().StringVar(&submitCredential, "credential", "", "Tier credential (or COMMANDGATE_CREDENTIAL)")
	submitCmd.Flags().StringVar(&submitSampleFile, "sample-file", "", "File holding the signature sample")
	submitCmd.Flags().StringVar(&submitTier, "tier", "normal", "Requested tier")
	submitCmd.Flags().BoolVar(&submitAuthorized, "transfer-authorized", false, "Explicitly authorize a control transfer")
	submitCmd.Flags().StringVar(&submitRecipient, "transfer-recipient", "", "Recipient of a control transfer")
	submitCmd.MarkFlagRequired("actor")
}

var submitCmd = &cobra.Command{
	Use:   "submit <command text>",
	Short: "Submit a command through the authorization gate",
	Long:  "Evaluates the command to a terminal verdict. Denials exit non-zero\nwith the refusal reason; allowed commands print the dispatch outcome.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	tier, ok := model.ParseTier(submitTier)
	if !ok {
		return fmt.Errorf("unknown tier %q", submitTier)
	}

	credential := submitCredential
	if credential == "" {
		credential = os.Getenv("COMMANDGATE_CREDENTIAL")
	}

	var sample []byte
	if submitSampleFile != "" {
		sample, err = os.ReadFile(submitSampleFile)
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
	}

	verdict, err := rt.gate.Submit(model.Request{
		ActorID:            submitActor,
		Role:               model.ParseRole(submitRole),
		CommandText:        strings.Join(args, " "),
		Credential:         credential,
		SignatureSample:    sample,
		RequestedTier:      tier,
		TransferAuthorized: submitAuthorized,
		TransferRecipient:  submitRecipient,
	})
	if err != nil {
		return err
	}

	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		fmt.Printf("%s\n", dimFmt(fmt.Sprintf("request %s, tier %s", verdict.RequestID, verdict.TierName)))
		os.Exit(77)
	}

	fmt.Printf("%s %s\n", allowFmt("ALLOWED"), verdict.Intent)
	if verdict.Result != nil {
		if verdict.Result.OK {
			fmt.Println(verdict.Result.Message)
		} else {
			fmt.Printf("%s %s: %s\n", denyFmt("EXECUTION FAILED"), verdict.Result.Message, verdict.Result.Error)
		}
	}
	fmt.Printf("%s\n", dimFmt(fmt.Sprintf("request %s, tier %s", verdict.RequestID, verdict.TierName)))
	return nil
}
