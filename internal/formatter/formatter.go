// package formatter renders meal plans to Markdown, plain text, CSV, XLSX and JSON.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/xuri/excelize/v2"
)

// Format names accepted by [Export].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatXLSX     = "xlsx"
)

// Formats lists every supported export format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText, FormatXLSX}

var mealHeaders = []string{"Day", "Type", "Name", "Calories", "Protein", "Carbs", "Fat", "Ingredients"}

// Extension returns the file extension for format, without the dot.
func Extension(format string) string {
	if format == FormatMarkdown {
		return "md"
	}
	return format
}

// Export renders plan in the named format.
func Export(plan models.MealPlan, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(plan)
	case FormatMarkdown:
		return ExportToMarkdown(plan)
	case FormatText:
		return ExportToText(plan)
	case FormatXLSX:
		return ExportToXLSX(plan)
	case FormatJSON, "":
		return shared.MarshalJSON(plan, true)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// mealRows flattens a plan into one row per meal, matching mealHeaders.
func mealRows(plan models.MealPlan) [][]string {
	if plan.Plan == nil {
		return nil
	}
	var rows [][]string
	for _, day := range plan.Plan.Days {
		for _, meal := range day.Meals {
			n := meal.NutritionalInfo
			rows = append(rows, []string{
				strconv.Itoa(day.Day),
				meal.Type,
				meal.Name,
				formatNumber(n.Calories),
				formatNumber(n.Protein),
				formatNumber(n.Carbs),
				formatNumber(n.Fat),
				strings.Join(meal.Ingredients, "; "),
			})
		}
	}
	return rows
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// statusLine describes a plan that has no generated content.
func statusLine(plan models.MealPlan) string {
	switch plan.Status {
	case models.StatusError:
		if plan.Error != "" {
			return "Generation failed: " + plan.Error
		}
		return "Generation failed"
	case models.StatusCompleted:
		return "No meals were generated"
	default:
		return "Still generating (" + plan.Status.String() + ")"
	}
}

func exportable(plan models.MealPlan) bool {
	return plan.Status == models.StatusCompleted && plan.Plan.MealCount() > 0
}

// ExportToCSV converts a meal plan to CSV with one row per meal.
//
// Plans that are not completed produce a single status row.
func ExportToCSV(plan models.MealPlan) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if !exportable(plan) {
		if err := writer.Write([]string{"Status", statusLine(plan)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	} else {
		if err := writer.Write(mealHeaders); err != nil {
			return nil, fmt.Errorf("failed to write CSV headers: %w", err)
		}
		for _, record := range mealRows(plan) {
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a meal plan to Markdown with a section per day.
func ExportToMarkdown(plan models.MealPlan) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Meal Plan: %s\n\n", plan.Title()))

	if len(plan.MealType) > 0 {
		buf.WriteString(fmt.Sprintf("**Meals**: %s\n", strings.Join(plan.MealType, ", ")))
	}
	if len(plan.DietaryPreferences) > 0 {
		buf.WriteString(fmt.Sprintf("**Dietary preferences**: %s\n", strings.Join(plan.DietaryPreferences, ", ")))
	}
	if len(plan.CuisineTypes) > 0 {
		buf.WriteString(fmt.Sprintf("**Cuisines**: %s\n", strings.Join(plan.CuisineTypes, ", ")))
	}
	buf.WriteString(fmt.Sprintf("**Status**: %s\n\n", plan.Status))

	if !exportable(plan) {
		buf.WriteString(statusLine(plan) + "\n")
		return buf.Bytes(), nil
	}

	for _, day := range plan.Plan.Days {
		buf.WriteString(fmt.Sprintf("## Day %d\n\n", day.Day))
		for _, meal := range day.Meals {
			buf.WriteString(fmt.Sprintf("### %s: %s\n\n", titleCase(meal.Type), meal.Name))

			n := meal.NutritionalInfo
			buf.WriteString(fmt.Sprintf("%s kcal, %sg protein, %sg carbs, %sg fat\n\n",
				formatNumber(n.Calories), formatNumber(n.Protein), formatNumber(n.Carbs), formatNumber(n.Fat)))

			if len(meal.Ingredients) > 0 {
				for _, ing := range meal.Ingredients {
					buf.WriteString(fmt.Sprintf("- %s\n", ing))
				}
				buf.WriteString("\n")
			}
			if meal.Recipe != "" {
				buf.WriteString(meal.Recipe + "\n\n")
			}
		}
	}

	return buf.Bytes(), nil
}

// ExportToText converts a meal plan to plain text, one line per meal.
func ExportToText(plan models.MealPlan) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Meal Plan: %s\n", plan.Title()))
	buf.WriteString(fmt.Sprintf("Status: %s\n", plan.Status))

	if !exportable(plan) {
		buf.WriteString(statusLine(plan) + "\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Meals: %d\n", plan.Plan.MealCount()))
	for _, day := range plan.Plan.Days {
		buf.WriteString(fmt.Sprintf("\nDay %d\n", day.Day))
		for _, meal := range day.Meals {
			buf.WriteString(fmt.Sprintf("  %s: %s (%s kcal)\n", titleCase(meal.Type), meal.Name, formatNumber(meal.NutritionalInfo.Calories)))
		}
	}

	return buf.Bytes(), nil
}

// ExportToXLSX builds a workbook with a "Meals" sheet laid out like [ExportToCSV].
func ExportToXLSX(plan models.MealPlan) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Meals"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	var rows [][]string
	if exportable(plan) {
		rows = append([][]string{mealHeaders}, mealRows(plan)...)
	} else {
		rows = [][]string{{"Status", statusLine(plan)}}
	}

	for r, row := range rows {
		for c, value := range row {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return nil, err
			}
			cell := col + strconv.Itoa(r+1)

			var v any = value
			if r > 0 && (c == 0 || (c >= 3 && c <= 6)) {
				if num, err := strconv.ParseFloat(value, 64); err == nil {
					v = num
				}
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func titleCase(s string) string {
	if s == "" {
		return "Meal"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WriteToFile writes data to path, creating parent directories as needed.
func WriteToFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WritePlan exports plan into dir as "{id}.{ext}" and returns the file path.
func WritePlan(plan models.MealPlan, format, dir string) (string, error) {
	data, err := Export(plan, format)
	if err != nil {
		return "", err
	}
	if format == "" {
		format = FormatJSON
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s", plan.ID, Extension(format)))
	if err := WriteToFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ManifestEntry records the outcome of exporting one plan.
type ManifestEntry struct {
	PlanID  string   `json:"plan_id"`
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     string          `json:"format"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Plans      []ManifestEntry `json:"plans"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return WriteToFile(path, data)
}
