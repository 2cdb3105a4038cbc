package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Payment reconciler microservice",
	Long:  "A microservice that reconciles ePayco and MercadoPago payment notifications with the storefront backend and resolves product variant pricing.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
