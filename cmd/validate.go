/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [openapi-contract-file]",
	Short: "Check that a contract loads",
	Long: `Load the contract the way serve does and report what it declares. Malformed
documents and unresolvable schema references are reported with their
location and the command exits with status 1.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args)
		if err != nil {
			fmt.Printf("%s %v\n", red("✗"), err)
			fail("contract is not usable")
		}

		ops := c.Operations()
		var timed, deprecated int
		for _, op := range ops {
			if op.Timeout > 0 {
				timed++
			}
			if op.Deprecated {
				deprecated++
			}
		}

		fmt.Printf("%s %s %s\n", green("✓"), white(c.Title), c.Version)
		fmt.Printf("Operations: %d\n", len(ops))
		if deprecated > 0 {
			fmt.Printf("Deprecated: %s\n", yellow(deprecated))
		}
		if timed > 0 {
			fmt.Printf("With x-timeout: %d\n", timed)
		}
		fmt.Printf("Schemas:    %d\n", len(c.SchemaNames()))
		fmt.Printf("Servers:    %s\n", strings.Join(c.ServerURLs(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
