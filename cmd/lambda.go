package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/dmorgan81/imagine/internal/handler"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve generation requests as an AWS Lambda function",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		h := do.MustInvoke[*handler.Handler](injector)
		lambda.StartWithOptions(h.Handle, lambda.WithContext(cmd.Context()), lambda.WithEnableSIGTERM(func() {
			_ = injector.Shutdown()
		}))
	},
}
