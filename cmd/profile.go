package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-agent/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the stored resume profile",
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a JSON resume profile and store it",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		logger, config := setup()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			logger.Fatal("reading the profile", zap.Error(err))
		}

		p, err := profile.Decode(raw)
		if err != nil {
			logger.Fatal("decoding the profile", zap.String("file", args[0]), zap.Error(err))
		}

		if err := newProfileStore(config).Save(config.Profile.Key, p); err != nil {
			logger.Fatal("saving the profile", zap.Error(err))
		}

		logger.Info("profile stored", zap.String("key", config.Profile.Key), zap.String("name", p.Name))
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored profile as rendered for the resume index",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()

		p, raw, err := newProfileStore(config).Load(config.Profile.Key)
		if err != nil {
			logger.Fatal("loading the profile", zap.String("key", config.Profile.Key), zap.Error(err))
		}

		if printRaw, _ := cmd.Flags().GetBool("raw"); printRaw {
			fmt.Println(string(raw))
			return
		}
		fmt.Print(profile.Render(p))
	},
}

func init() {
	profileShowCmd.Flags().Bool("raw", false, "print the stored JSON document")

	profileCmd.AddCommand(profileImportCmd, profileShowCmd)
	rootCmd.AddCommand(profileCmd)
}
