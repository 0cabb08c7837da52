package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	stageConfigPath string
	env             string
	verbose         bool

	// gitCommit is set at build time: -ldflags "-X github.com/wonny/stagegate/cmd/stagectl/commands.gitCommit=$(git rev-parse HEAD)"
	gitCommit = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stagectl",
	Short: "Stagegate - 종목/섹터 스테이지 분류 엔진",
	Long: `Stagegate Unified CLI

일봉 데이터로 종목과 섹터 바스켓을 9단계 스테이지로 분류하고,
섹터 스테이지로 신규 진입을 허용/축소/차단하는 게이트를 제공합니다.

Usage:
  go run ./cmd/stagectl [command]

Examples:
  go run ./cmd/stagectl config validate
  go run ./cmd/stagectl classify --as-of 2024-06-03
  go run ./cmd/stagectl gate list --date 2024-06-03
  go run ./cmd/stagectl api`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 플래그는 환경변수보다 우선
		if cmd.Flags().Changed("env") {
			os.Setenv("ENV", env)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&stageConfigPath, "stage-config", "", "stage config YAML (default is STAGE_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
