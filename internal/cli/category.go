package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/internal/models"
)

var (
	categoryDepartment string
	categoryHours      float64
)

func init() {
	categoryAddCmd.Flags().StringVarP(&categoryDepartment, "department", "d", "", "Owning department (required)")
	categoryAddCmd.Flags().Float64Var(&categoryHours, "hours", 0, "Resolution allowance in hours (required)")
	categoryAddCmd.MarkFlagRequired("department")
	categoryAddCmd.MarkFlagRequired("hours")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	rootCmd.AddCommand(categoryCmd)
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Ticket category commands",
	Long: `Manage ticket categories. In sla.mode = "category" a ticket's deadline is
its creation time plus its category's allowance.`,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <NAME>",
	Short: "Create a category",
	Long: `Create a category. Admins only.

Examples:
  campusdesk --as admin:ops category add "Air conditioning" -d Facilities --hours 24`,
	Args: cobra.ExactArgs(1),
	RunE: runCategoryAdd,
}

func runCategoryAdd(cmd *cobra.Command, args []string) error {
	actor, err := currentActor()
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.CreateCategory(cmdContext(cmd), actor, args[0], categoryDepartment, categoryHours)
	if err != nil {
		return err
	}
	if IsJSON() {
		return printJSON(c)
	}
	OutputLine("Created category %s (%s, %s)", c.Name, c.Department, fmtHours(c.SLAResolveHours))
	VerboseOutput("ID: %s\n", c.ID)
	return nil
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

func runCategoryList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	categories, err := a.svc.ListCategories(cmdContext(cmd))
	if err != nil {
		return err
	}
	if IsJSON() {
		if categories == nil {
			categories = []*models.Category{}
		}
		return printJSON(categories)
	}
	if len(categories) == 0 {
		OutputLine("No categories. Add one with 'campusdesk category add'.")
		return nil
	}

	out := stdout()
	fmt.Fprintf(out, "%-24s %-20s %8s  %s\n", "NAME", "DEPARTMENT", "HOURS", "ID")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, c := range categories {
		fmt.Fprintf(out, "%s %s %8s  %s\n",
			padRight(truncate(c.Name, 24), 24),
			padRight(truncate(c.Department, 20), 20),
			fmtHours(c.SLAResolveHours),
			c.ID,
		)
	}
	return nil
}
