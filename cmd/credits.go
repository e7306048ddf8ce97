/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eslsoft/storyquest/internal/app"
	"github.com/eslsoft/storyquest/internal/infrastructure/metrics"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Manage learner credits",
}

var distributeCmd = &cobra.Command{
	Use:   "distribute",
	Short: "Grant credits to every registered user",
	RunE: func(cmd *cobra.Command, args []string) error {
		container, cleanup, err := app.InitializeCredits()
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		defer cleanup()

		amount := container.Config.Credits.DistributeAmount
		report, err := container.Distributor.Distribute(cmd.Context(), amount, container.Config.Credits.DistributeBatch)
		metrics.CreditsGranted.Add(float64(report.Processed * amount))
		container.Logger.WithFields(logrus.Fields{
			"users":     report.Users,
			"processed": report.Processed,
			"errors":    report.Failed,
			"amount":    amount,
		}).Info("credit distribution finished")
		if err != nil {
			return fmt.Errorf("distribute credits: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(creditsCmd)
	creditsCmd.AddCommand(distributeCmd)

	distributeCmd.Flags().Int("amount", 100, "credits granted to each registered user")
	distributeCmd.Flags().Int("batch", 500, "users granted per batch")
	bindFlagToViper("credits.distribute_amount", distributeCmd.Flags().Lookup("amount"))
	bindFlagToViper("credits.distribute_batch", distributeCmd.Flags().Lookup("batch"))
}
