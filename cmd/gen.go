/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moamenhredeen/oasgate/internal/codegen"
)

var (
	genPackage string
	genOut     string
)

// genCmd represents the gen command
var genCmd = &cobra.Command{
	Use:   "gen [openapi-contract-file]",
	Short: "Generate operation id constants",
	Long: `Generate a Go file declaring one registry.OperationID constant per contract
operation, for registering handlers without string literals.

Examples:
  oasgate gen api.yaml --package api --out internal/api/operations.go`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args)
		if err != nil {
			fail("%v", err)
		}

		src, err := codegen.Operations(c, codegen.Options{Package: genPackage})
		if err != nil {
			fail("%v", err)
		}

		if genOut == "" {
			_, _ = os.Stdout.Write(src)
			return
		}
		if err := os.WriteFile(genOut, src, 0o644); err != nil {
			fail("failed to write %s: %v", genOut, err)
		}
		fmt.Printf("%s wrote %d operations to %s\n", green("✓"), len(c.Operations()), genOut)
	},
}

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().StringVar(&genPackage, "package", "api", "Package name of the generated file")
	genCmd.Flags().StringVar(&genOut, "out", "", "Output file (default: stdout)")
}
