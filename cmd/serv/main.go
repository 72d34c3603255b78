package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dushixiang/alpha/internal"
	"github.com/dushixiang/alpha/pkg/points"
	"github.com/spf13/cobra"
)

var (
	configFile string

	balance  float64
	volume   float64
	bonus    float64
	deducted float64
)

var rootCmd = &cobra.Command{
	Use:   "alpha",
	Short: "Alpha - Binance Alpha 积分记账",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		return internal.Run(configFile)
	},
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "计算某天的积分",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if balance < 0 || volume < 0 || bonus < 0 || deducted < 0 {
			return fmt.Errorf("values must be non-negative")
		}
		bp := points.BalancePoints(balance)
		vp := points.VolumePoints(volume)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "balance\t%s\t%d\n", num(balance), bp)
		fmt.Fprintf(w, "volume\t%s\t%d\n", num(volume), vp)
		fmt.Fprintf(w, "total\t\t%s\n", num(points.Total(bp, vp, bonus, deducted)))
		return w.Flush()
	},
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "列出余额和交易量档位",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "balance >=\tpoints")
		for _, b := range points.BalanceOptions() {
			fmt.Fprintf(w, "%s\t%d\n", num(b), points.BalancePoints(b))
		}
		fmt.Fprintln(w, "\nvolume >=\tpoints")
		for _, v := range points.VolumeOptions() {
			fmt.Fprintf(w, "%s\t%d\n", num(v), points.VolumePoints(v))
		}
		return w.Flush()
	},
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	// 全局配置文件标志
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "配置文件路径")

	pointsCmd.Flags().Float64VarP(&balance, "balance", "b", 0, "余额")
	pointsCmd.Flags().Float64VarP(&volume, "volume", "v", 0, "交易量")
	pointsCmd.Flags().Float64Var(&bonus, "bonus", 0, "奖励积分")
	pointsCmd.Flags().Float64Var(&deducted, "deducted", 0, "扣除积分")

	rootCmd.AddCommand(pointsCmd, tiersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
