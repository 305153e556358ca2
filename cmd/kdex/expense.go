package main

import (
	"fmt"
	"time"

	"github.com/franz/kdex/internal/expense"
	"github.com/franz/kdex/internal/util"
	"github.com/spf13/cobra"
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Track fan spending in a CSV ledger",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a spending entry",
	Long: `Append one entry to the expense ledger.

Without --amount the values are asked for interactively. An empty date
means today and an empty category is stored as "other".`,
	RunE: runExpenseAdd,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spending entries with per-category totals",
	RunE:  runExpenseList,
}

func init() {
	rootCmd.AddCommand(expenseCmd)
	expenseCmd.AddCommand(expenseAddCmd, expenseListCmd)

	expenseCmd.PersistentFlags().String("ledger", "", "ledger file (default from config, "+expense.DefaultPath+")")

	expenseAddCmd.Flags().String("date", "", "date as YYYY-MM-DD (default today)")
	expenseAddCmd.Flags().String("amount", "", "amount spent")
	expenseAddCmd.Flags().String("category", "", "category such as album, concert, goods")
	expenseAddCmd.Flags().String("notes", "", "free text")

	expenseListCmd.Flags().String("category", "", "only this category")
}

func ledgerFor(cmd *cobra.Command) *expense.Ledger {
	path, _ := cmd.Flags().GetString("ledger")
	if path == "" {
		path = GetConfigString("expenses", expense.DefaultPath)
	}
	return expense.NewLedger(path)
}

func runExpenseAdd(cmd *cobra.Command, args []string) error {
	ledger := ledgerFor(cmd)
	now := time.Now()

	var (
		e   expense.Entry
		err error
	)
	if cmd.Flags().Changed("amount") {
		date, _ := cmd.Flags().GetString("date")
		amount, _ := cmd.Flags().GetString("amount")
		category, _ := cmd.Flags().GetString("category")
		notes, _ := cmd.Flags().GetString("notes")
		e, err = expense.NewEntry(date, amount, category, notes, now)
	} else {
		e, err = expense.Prompt(cmd.InOrStdin(), cmd.OutOrStdout(), now)
	}
	if err != nil {
		return err
	}

	if err := ledger.Append(e); err != nil {
		return err
	}
	util.SuccessLog("Added: %s", e)
	return nil
}

func runExpenseList(cmd *cobra.Command, args []string) error {
	ledger := ledgerFor(cmd)
	category, _ := cmd.Flags().GetString("category")

	entries, err := ledger.List()
	if err != nil {
		return err
	}
	if category != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		util.InfoLog("No entries in %s", ledger.Path())
		return nil
	}

	t := newTable("DATE", "AMOUNT", "CATEGORY", "NOTES")
	var total float64
	for _, e := range entries {
		t.add(e.Date.Format("2006-01-02"), fmt.Sprintf("%.2f", e.Amount), e.Category, e.Notes)
		total += e.Amount
	}
	t.write(out)

	fmt.Fprintln(out)
	totals := newTable("CATEGORY", "ENTRIES", "TOTAL")
	for _, ct := range expense.Totals(entries) {
		totals.add(ct.Category, util.FormatCount(ct.Count), fmt.Sprintf("%.2f", ct.Amount))
	}
	totals.add("all", util.FormatCount(len(entries)), fmt.Sprintf("%.2f", total))
	totals.write(out)
	return nil
}
