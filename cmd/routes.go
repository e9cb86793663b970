/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moamenhredeen/oasgate/internal/output"
	"github.com/moamenhredeen/oasgate/internal/registry"
	"github.com/moamenhredeen/oasgate/internal/sample"
)

var routesFormat string

// routesCmd represents the routes command
var routesCmd = &cobra.Command{
	Use:   "routes [openapi-contract-file]",
	Short: "List the operations of a contract",
	Long: `List every operation of the contract in declaration order. With --sample
the bundled handlers are registered and the table shows which operations
are handled.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := loadContract(args)
		if err != nil {
			fail("%v", err)
		}

		reg := registry.New(c)
		if useSample {
			if err := sample.Register(reg, sample.DefaultService{}); err != nil {
				fail("%v", err)
			}
		}
		routes := output.Routes(c, func(id string) bool { return reg.Has(registry.OperationID(id)) })

		if routesFormat != "" {
			format, err := output.ParseFormat(routesFormat)
			if err != nil {
				fail("%v", err)
			}
			if err := output.WriteRoutes(os.Stdout, routes, format); err != nil {
				fail("%v", err)
			}
			return
		}

		fmt.Printf("%s\n", white(fmt.Sprintf("%s %s", c.Title, c.Version)))
		fmt.Printf("%-8s %-40s %-36s %s\n", "METHOD", "PATH", "OPERATION", "HANDLED")
		fmt.Println(strings.Repeat("-", 96))
		for _, r := range routes {
			handled := red("no")
			if r.Handled {
				handled = green("yes")
			}
			id := r.OperationID
			if r.Deprecated {
				id += " " + yellow("(deprecated)")
			}
			fmt.Printf("%-8s %-40s %-36s %s\n", cyan(r.Method), r.Path, id, handled)
		}
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVarP(&routesFormat, "output", "o", "", "Output format: json, yaml, csv")
}
