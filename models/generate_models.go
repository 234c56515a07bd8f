package models

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"sort"
	"strings"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Column Mismatch Report Usage:

Reports database columns that no Go model field maps to. Useful after a
manual schema change to spot drift.

	GENERATE_COLUMN_REPORT=true go run .

Example output:

	=== COLUMN MISMATCH REPORT ===
	--- Table: recipes ---
	Found 1 columns not accounted for in model:
	  - legacy_slug

	=== SUMMARY ===
	Total mismatched columns across all tables: 1
*/

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&MeasurementUnit{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeTag{},
		&AmountIngredient{},
		&Favorite{},
		&ShoppingCartItem{},
		&Subscription{},
		&RevokedToken{},
	}
}

// Migrate registers the custom recipe_tags join table and auto-migrates every model.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Recipe{}, "Tags", &RecipeTag{}); err != nil {
		return fmt.Errorf("setup recipe_tags join table: %w", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func GenerateModels(db *gorm.DB) {
	if err := db.Exec("SELECT 1").Error; err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	db = db.Session(&gorm.Session{
		Logger:                 newLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(All()...)

	fmt.Println("Migrating models...")
	if err := Migrate(db); err != nil {
		fmt.Printf("Error during models migration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Database migration completed successfully!")

	WriteColumnMismatchReport(os.Stdout, db)

	g.Execute()
	fmt.Println("Model generation complete!")
}

// WriteColumnMismatchReport prints, per table, the database columns that no model field maps to.
func WriteColumnMismatchReport(w io.Writer, db *gorm.DB) int {
	fmt.Fprintln(w, "=== COLUMN MISMATCH REPORT ===")

	tables := make(map[string]any)
	for _, m := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			fmt.Fprintf(w, "Error parsing model %T: %v\n", m, err)
			continue
		}
		tables[stmt.Schema.Table] = reflect.ValueOf(m).Elem().Interface()
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	totalMismatches := 0
	for _, tableName := range names {
		fmt.Fprintf(w, "\n--- Table: %s ---\n", tableName)

		dbColumns, err := getTableColumns(db, tableName)
		if err != nil {
			if strings.Contains(err.Error(), "does not exist") {
				fmt.Fprintln(w, "Table does not exist yet (will be created during migration)")
			} else {
				fmt.Fprintf(w, "Error getting columns for table %s: %v\n", tableName, err)
			}
			continue
		}

		mismatches := findColumnMismatches(dbColumns, getModelFields(tables[tableName]))
		if len(mismatches) > 0 {
			fmt.Fprintf(w, "Found %d columns not accounted for in model:\n", len(mismatches))
			for _, col := range mismatches {
				fmt.Fprintf(w, "  - %s\n", col)
			}
			totalMismatches += len(mismatches)
		} else {
			fmt.Fprintln(w, "All columns are accounted for in the model.")
		}
	}

	fmt.Fprintf(w, "\n=== SUMMARY ===\n")
	fmt.Fprintf(w, "Total mismatched columns across all tables: %d\n", totalMismatches)
	return totalMismatches
}

func getTableColumns(db *gorm.DB, tableName string) ([]string, error) {
	var columns []string
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`
	if err := db.Raw(query, tableName).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}

	if len(columns) == 0 {
		var tableExists bool
		tableQuery := `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = CURRENT_SCHEMA()
				AND table_name = ?
			)
		`
		if err := db.Raw(tableQuery, tableName).Scan(&tableExists).Error; err != nil {
			return nil, fmt.Errorf("error checking if table %s exists: %w", tableName, err)
		}
		if !tableExists {
			return nil, fmt.Errorf("table %s does not exist", tableName)
		}
	}

	return columns, nil
}

// getModelFields lists the column names a struct maps to. Relation fields
// carry no db tag and are skipped.
func getModelFields(model any) []string {
	var fields []string
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous || field.Tag.Get("gorm") == "-" {
			continue
		}
		if column := extractColumnNameFromGormTag(field.Tag.Get("gorm")); column != "" {
			fields = append(fields, column)
			continue
		}
		if column, _, _ := strings.Cut(field.Tag.Get("db"), ","); column != "" && column != "-" {
			fields = append(fields, column)
		}
	}

	return fields
}

func extractColumnNameFromGormTag(gormTag string) string {
	for _, part := range strings.Split(gormTag, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

func findColumnMismatches(dbColumns, modelFields []string) []string {
	modelFieldSet := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		modelFieldSet[field] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !modelFieldSet[col] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}

// GenerateColumnMismatchReportStandalone prints the report without migrating.
func GenerateColumnMismatchReportStandalone(db *gorm.DB) {
	if err := db.Exec("SELECT 1").Error; err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	WriteColumnMismatchReport(os.Stdout, db)
}
