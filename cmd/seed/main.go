package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

// productColumns is the expected header row of a product sheet
var productColumns = []string{"name", "description", "category", "price", "quantity", "status", "images"}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Storefront data tools",
	Long:  "Loads catalog data and staff accounts into the storefront database.",
}

var assumeYes bool

func init() {
	productsCmd.AddCommand(productsImportCmd)
	employeeCmd.AddCommand(employeeAddCmd)

	productsImportCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "import without asking for confirmation")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(employeeCmd)
}

// bootDB loads config and opens the database connection.
func bootDB() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := db.Initialize(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, nil
}

// seed migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootDB(); err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Running migrations...")
		return db.Migrate()
	},
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product catalog",
}

// seed products import <xlsx>
var productsImportCmd = &cobra.Command{
	Use:   "import <xlsx_file_path>",
	Short: "Import products from the first sheet of an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		fmt.Printf("Reading XLSX file: %s\n", filePath)
		inputs, err := readProductsFromXLSX(filePath)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			fmt.Println("Nothing to import.")
			return nil
		}
		fmt.Printf("Total products to import: %d\n", len(inputs))

		if !assumeYes && !confirm(cmd, "Do you want to proceed with the import? (yes/no): ") {
			fmt.Println("Import cancelled.")
			return nil
		}

		if _, err := bootDB(); err != nil {
			return err
		}
		defer db.Close()

		products := service.NewProductService(repository.NewProductRepository(db.GetDB()))
		count, err := products.Import(context.Background(), inputs)
		if err != nil {
			return fmt.Errorf("failed to import products: %w", err)
		}

		fmt.Println("Import completed successfully!")
		fmt.Printf("Total products imported: %d\n", count)
		return nil
	},
}

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Manage staff accounts",
}

// seed employee add <email> <password>
var employeeAddCmd = &cobra.Command{
	Use:   "add <email> <password>",
	Short: "Create the first employee account, or any other",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootDB()
		if err != nil {
			return err
		}
		defer db.Close()

		auth := service.NewAuthService(
			repository.NewUserRepository(db.GetDB()),
			repository.NewEmployeeRepository(db.GetDB()),
			nil,
			cfg.Session.Secret,
			cfg.Session.Expiry,
		)
		employee, err := auth.AddEmployee(context.Background(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to add employee: %w", err)
		}

		fmt.Printf("Employee %s created (id %d)\n", employee.Email, employee.ID)
		return nil
	},
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func readProductsFromXLSX(filePath string) ([]service.ProductInput, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	if !headerMatches(rows[0]) {
		fmt.Printf("Warning: expected headers %v, got %v\n", productColumns, rows[0])
	}

	inputs, skipped := parseProductRows(rows[1:])

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid products: %d\n", len(inputs))
	fmt.Printf("  Skipped rows: %d\n", skipped)

	return inputs, nil
}

func headerMatches(header []string) bool {
	if len(header) < len(productColumns) {
		return false
	}
	for i, column := range productColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), column) {
			return false
		}
	}
	return true
}

// parseProductRows maps data rows laid out as productColumns. Rows without a name or with an
// unreadable price are skipped; GetRows trims trailing empty cells so short rows are normal.
func parseProductRows(rows [][]string) ([]service.ProductInput, int) {
	var inputs []service.ProductInput
	seen := make(map[string]bool)
	skipped := 0

	for _, row := range rows {
		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		name := cell(0)
		if name == "" {
			skipped++
			continue
		}

		price, err := strconv.ParseFloat(cell(3), 64)
		if err != nil || price < 0 {
			skipped++
			continue
		}

		quantity := 0
		if raw := cell(4); raw != "" {
			if quantity, err = strconv.Atoi(raw); err != nil || quantity < 0 {
				skipped++
				continue
			}
		}

		status := model.ProductStatus(strings.ToLower(cell(5)))
		if status == "" {
			status = model.ProductStatusActive
		}
		if !status.Valid() {
			skipped++
			continue
		}

		key := strings.ToLower(name)
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		var images []string
		for _, image := range strings.Split(cell(6), ",") {
			if image = strings.TrimSpace(image); image != "" {
				images = append(images, image)
			}
		}

		inputs = append(inputs, service.ProductInput{
			Name:        name,
			Description: cell(1),
			Category:    cell(2),
			Price:       price,
			Quantity:    quantity,
			Status:      status,
			Images:      images,
		})
	}

	return inputs, skipped
}
