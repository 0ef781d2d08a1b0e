package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	enrollActor      string
	enrollCredential string
	enrollOwner      string
	enrollSampleFile string
)

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().StringVar(&enrollActor, "actor", "", "Actor performing the enrollment")
	enrollCmd.Flags().StringVar(&enrollCredential, "credential", "", "Override-tier credential")
	enrollCmd.Flags().StringVar(&enrollOwner, "owner", "", "Identity the signature belongs to")
	enrollCmd.Flags().StringVar(&enrollSampleFile, "sample-file", "", "File holding the reference sample")
	enrollCmd.MarkFlagRequired("actor")
	enrollCmd.MarkFlagRequired("credential")
	enrollCmd.MarkFlagRequired("owner")
	enrollCmd.MarkFlagRequired("sample-file")
}

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a reference signature for an identity",
	Long:  "Stores the digest of a reference sample, replacing any prior\nenrollment for the same identity. Requires an override-tier credential.",
	RunE:  runEnroll,
}

func runEnroll(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	sample, err := os.ReadFile(enrollSampleFile)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}

	verdict, err := rt.gate.EnrollSignature(enrollActor, enrollCredential, enrollOwner, sample)
	if err != nil {
		return err
	}
	if !verdict.Allowed {
		fmt.Printf("%s %s\n", denyFmt("DENIED"), verdict.Reason)
		os.Exit(77)
	}
	fmt.Printf("%s signature enrolled for %s\n", allowFmt("OK"), enrollOwner)
	return nil
}
