package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/stageconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "스테이지 설정 검사",
	Long: `스테이지 설정 YAML을 검사합니다 (DB 불필요).

Subcommands:
  validate  - 로드 + 검증 + 경고 출력
  hash      - 설정 해시 (실행 스냅샷 키)
  show      - 검증된 설정을 JSON으로 출력

Example:
  go run ./cmd/stagectl config validate
  go run ./cmd/stagectl config validate --stage-config config/stages.yaml
  go run ./cmd/stagectl config hash`,
}

var (
	configValidateCmd = &cobra.Command{
		Use:   "validate",
		Short: "설정 검증",
		RunE:  validateConfig,
	}

	configHashCmd = &cobra.Command{
		Use:   "hash",
		Short: "설정 해시 출력",
		RunE:  hashConfig,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "설정 출력",
		RunE:  showConfig,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configHashCmd)
	configCmd.AddCommand(configShowCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	a, err := loadBase()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("Stage Config",
		"Version", a.stageCfg.Meta.Version,
		"Hash", a.configHash,
		"Warmup", strconv.Itoa(a.stageCfg.WarmupBars())+" bars",
	)

	warnings := stageconfig.Warn(a.stageCfg)
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}

	PrintSuccess("Config is valid")
	return nil
}

func hashConfig(cmd *cobra.Command, args []string) error {
	a, err := loadBase()
	if err != nil {
		return err
	}
	fmt.Println(a.configHash)
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	a, err := loadBase()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(a.stageCfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
