package main

import (
	"encoding/json"
	"fmt"
	"liftworks/logger"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/services/lms"
	"liftworks/services/partimport"
	"liftworks/services/seats"
	"liftworks/services/serial"
	"os"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		logger.Log.Info("migrations applied")
		return nil
	},
}

var seedLookupsCmd = &cobra.Command{
	Use:   "seed-lookups",
	Short: "Seed the VIN model-year code table when it is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		n, err := serial.SeedYearCodes(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d year codes\n", n)
		return nil
	},
}

var importPartsCmd = &cobra.Command{
	Use:   "import-parts <file.csv>",
	Short: "Upsert catalog parts by SKU from a CSV price list",
	Long: `Upsert catalog parts by SKU from a CSV price list.

Recognized columns: sku, name, brand, category, part_type, description,
price_cents, stock_qty, image_url, is_rental, rental_daily_cents, is_active.
Columns named spec.<key> are stored in the part's specs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer file.Close()

		res, err := partimport.Import(db, file)
		if err != nil {
			return err
		}
		for _, e := range res.Errors {
			logger.Log.Warn(e)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, updated %d, skipped %d, failed %d\n",
			res.Inserted, res.Updated, res.Skipped, len(res.Errors))
		return nil
	},
}

var importQuizCmd = &cobra.Command{
	Use:   "import-quiz <file.json>",
	Short: "Import quiz items from a JSON batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := connect()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		var batch lms.QuizImport
		if err := json.Unmarshal(data, &batch); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		res, err := lms.ImportQuiz(db, &batch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d, updated %d\n", res.Inserted, res.Updated)
		return nil
	},
}

var grantOrg, grantCourse uint
var grantSeats int

var grantSeatsCmd = &cobra.Command{
	Use:   "grant-seats",
	Short: "Add seats to an organization's pool for a course",
	RunE: func(cmd *cobra.Command, args []string) error {
		if grantSeats <= 0 {
			return fmt.Errorf("--seats must be positive")
		}
		db, err := connect()
		if err != nil {
			return err
		}
		var org enterprise.Organization
		if err := db.Where("id = ? AND is_deleted = ?", grantOrg, false).First(&org).Error; err != nil {
			return fmt.Errorf("organization %d: %w", grantOrg, err)
		}
		var course training.Course
		if err := db.Where("id = ? AND is_deleted = ?", grantCourse, false).First(&course).Error; err != nil {
			return fmt.Errorf("course %d: %w", grantCourse, err)
		}

		pool, err := seats.AllocateSeats(db, org.ID, course.ID, grantSeats)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s / %s: %d allocated, %d used\n",
			org.Name, course.Title, pool.AllocatedSeats, pool.UsedSeats)
		return nil
	},
}

func init() {
	grantSeatsCmd.Flags().UintVar(&grantOrg, "org", 0, "Organization ID (required)")
	grantSeatsCmd.Flags().UintVar(&grantCourse, "course", 0, "Course ID (required)")
	grantSeatsCmd.Flags().IntVar(&grantSeats, "seats", 0, "Number of seats to add (required)")
	_ = grantSeatsCmd.MarkFlagRequired("org")
	_ = grantSeatsCmd.MarkFlagRequired("course")
	_ = grantSeatsCmd.MarkFlagRequired("seats")
}
