// Qlikwatch CLI — инструмент оператора мониторинга.
//
// Использование:
//
//	qlikwatch [--amqp-url URL] [--json] run <subcommand> [flags]
//
// Команды:
//
//	run now   Запросить немедленную проверку обеих платформ
//	run list  История runs
//	run show  Детали run и вердикты по процессам
//	run logs  Журнал выполнения run
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Qlikwatch/internal/cli"
	"github.com/shaiso/Qlikwatch/internal/mq"
	"github.com/shaiso/Qlikwatch/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var amqpURL string
	var jsonOutput bool

	logger := telemetry.SetupLogger()

	rootCmd := &cobra.Command{
		Use:           "qlikwatch",
		Short:         "Qlikwatch CLI — reporting platform monitoring tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&amqpURL, "amqp-url", mq.DefaultURL(), "RabbitMQ URL (empty to rely on runner polling)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	depsFn := func() (*cli.Deps, error) { return cli.NewDeps(rootCmd.Context(), amqpURL, logger) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(depsFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
