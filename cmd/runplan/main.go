/*
 * @module cmd/runplan
 * @description 排布命令行工具：离线完成解析、排布与结果表生成，不依赖Web服务
 * @architecture CLI架构
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 解析输入文件 -> 排布 -> 输出告警 -> 写结果工作簿
 * @rules 数据告警打印到stderr不中断；配置错误以非零码退出
 * @dependencies github.com/spf13/cobra
 * @refs service/parser, service/allocation, service/generator
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"runplan-service/service/allocation"
	"runplan-service/service/generator"
	"runplan-service/service/parser"
)

var (
	paths     parser.InputPaths
	overrides parser.Overrides
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "runplan",
	Short: "样本上机排布工具",
	Long: `读取输入表与参考文件，完成文库排布与芯片排布，
生成文库表、芯片表与合并结果工作簿。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := parser.BuildAllocationInput(paths, overrides)
		if err != nil {
			return err
		}

		plan, err := allocation.Allocate(*input)
		if err != nil {
			return err
		}

		for _, warn := range plan.Warnings {
			fmt.Fprintf(os.Stderr, "告警 [%s] %s: %s\n", warn.Sample, warn.Field, warn.Reason)
		}

		gen := generator.NewOutputGenerator()
		if paths.Template != "" {
			if gen, err = generator.NewOutputGeneratorFromTemplate(paths.Template); err != nil {
				return err
			}
		}

		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
		outputs := map[string]string{
			"结果表.xlsx": "",
			"文库表.xlsx": "",
			"芯片表.xlsx": "",
		}
		for name := range outputs {
			outputs[name] = filepath.Join(outputDir, name)
		}
		if err := gen.WriteCombined(plan, outputs["结果表.xlsx"]); err != nil {
			return err
		}
		if err := gen.WriteLibraryTable(plan.Libraries, outputs["文库表.xlsx"]); err != nil {
			return err
		}
		if err := gen.WriteChipTable(plan.Chips, outputs["芯片表.xlsx"]); err != nil {
			return err
		}

		fmt.Printf("排布完成: %d条文库记录, %d张芯片, %d条告警\n",
			len(plan.Libraries), len(plan.Chips), len(plan.Warnings))
		fmt.Printf("输出目录: %s\n", outputDir)
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&paths.Input, "input", "i", "", "输入表文件路径（必选）")
	flags.StringVar(&paths.Rules, "rules", "", "规则文件路径")
	flags.StringVar(&paths.NC, "nc", "", "NC列表文件路径")
	flags.StringVar(&paths.PC, "pc", "", "PC列表文件路径")
	flags.StringVar(&paths.Species, "species", "", "物种列表文件路径")
	flags.StringVar(&paths.Sequencer, "sequencer", "", "测序仪对应关系文件路径")
	flags.StringVar(&paths.Template, "template", "", "结果表模版文件路径")
	flags.StringVarP(&outputDir, "output", "o", ".", "输出目录")
	flags.StringVar(&overrides.Project, "project", "", "实验项目名称，覆盖输入表")
	flags.IntVar(&overrides.ChipCapacity, "capacity", 0, "芯片容量，默认96")
	flags.StringVar(&overrides.StartDate, "start-date", "", "实验启动日期(YYMMDD)，覆盖输入表")
	flags.Int64Var(&overrides.Seed, "seed", 0, "随机种子，0表示按时间取")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
