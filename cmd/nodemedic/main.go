// nodemedic is the workflow diagnosis and repair assistant server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nodemedic",
	Short: "Conversational diagnosis and repair for node-graph workflows",
	Long: `nodemedic serves a conversational assistant that diagnoses and
repairs node-graph workflows: it classifies each message, searches for
known fixes, analyzes workflow structure, and stages undoable repair
actions behind user confirmation.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or json)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
