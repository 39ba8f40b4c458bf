package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/kabuai/pkg/models"
	"github.com/seenimoa/kabuai/pkg/utils"
)

// --- Company Command ---

var companyCmd = &cobra.Command{
	Use:   "company [code]",
	Short: "Show listing information for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := models.ParseCompanyCode(args[0])
		if err != nil {
			return err
		}
		info, err := newClient().GetCompanyInfo(cmd.Context(), code)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Printf("  Code:     %s\n", info.Code)
		fmt.Printf("  Name:     %s (%s)\n", info.Name, info.NameEnglish)
		fmt.Printf("  Market:   %s\n", info.Market)
		fmt.Printf("  Sector:   %s / %s\n", info.Sector17, info.Sector33)
		fmt.Printf("  Scale:    %s\n", info.ScaleCategory)
		fmt.Printf("  As of:    %s\n", info.Date)
		return nil
	},
}

func init() {
	companyCmd.Flags().Bool("json", false, "print as JSON")
}

// --- Calendar Command ---

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "List exchange business days in a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		today := utils.NowJST()
		from, to := today, today.AddDate(0, 0, 14)
		if v, _ := cmd.Flags().GetString("from"); v != "" {
			d, err := utils.ParseDateJST(v)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			from = d
		}
		if v, _ := cmd.Flags().GetString("to"); v != "" {
			d, err := utils.ParseDateJST(v)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			to = d
		}
		if to.Before(from) {
			return fmt.Errorf("--to %s is before --from %s", utils.FormatDateJST(to), utils.FormatDateJST(from))
		}

		days, err := newClient().GetTradingCalendar(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		for _, d := range days {
			status := "closed"
			if d.IsBusinessDay() {
				status = "open"
			}
			weekday := ""
			if t, err := time.ParseInLocation(time.DateOnly, d.Date, utils.JST); err == nil {
				weekday = t.Weekday().String()[:3]
			}
			fmt.Printf("  %s %s  %s\n", d.Date, weekday, status)
		}
		return nil
	},
}

func init() {
	calendarCmd.Flags().String("from", "", "first date, YYYY-MM-DD (default: today)")
	calendarCmd.Flags().String("to", "", "last date, YYYY-MM-DD (default: two weeks from today)")
}
