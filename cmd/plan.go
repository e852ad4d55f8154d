package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/postcraft/config"
	srv "github.com/mohammad-safakhou/postcraft/internal/server"
	"github.com/mohammad-safakhou/postcraft/internal/workflow"
)

func planCMD() *cobra.Command {
	var cfgPath string
	var topicHint string
	var inputFile string
	var asJSON bool

	var plan = &cobra.Command{
		Use:   "plan",
		Short: "Run the content pipeline once and print the plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			var text []byte
			if inputFile != "" {
				text, err = os.ReadFile(inputFile)
			} else {
				text, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return err
			}

			orch, cache, tel, err := srv.BuildOrchestrator(cfg)
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}
			defer tel.Shutdown()

			result, err := orch.Run(cmd.Context(), string(text), topicHint)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Print(workflow.RenderPlainText(result))
			return nil
		},
	}
	plan.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	plan.Flags().StringVarP(&inputFile, "file", "f", "", "input file (default stdin)")
	plan.Flags().StringVar(&topicHint, "topic", "", "optional topic hint")
	plan.Flags().BoolVar(&asJSON, "json", false, "print full result as JSON")

	return plan
}
