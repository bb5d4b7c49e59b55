package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Harriee01/Hospital-Management/internal/config"
	"github.com/Harriee01/Hospital-Management/internal/domain/appointment"
	"github.com/Harriee01/Hospital-Management/internal/domain/department"
	"github.com/Harriee01/Hospital-Management/internal/domain/doctor"
	"github.com/Harriee01/Hospital-Management/internal/domain/feedback"
	"github.com/Harriee01/Hospital-Management/internal/domain/inventory"
	"github.com/Harriee01/Hospital-Management/internal/domain/patient"
	"github.com/Harriee01/Hospital-Management/internal/domain/prescription"
	"github.com/Harriee01/Hospital-Management/internal/domain/records"
	"github.com/Harriee01/Hospital-Management/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hospital",
		Short: "Hospital records management service",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(poolCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func openPool(ctx context.Context, logger zerolog.Logger) (*db.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPool(ctx, db.PgxDialer(cfg.DatabaseURL), db.PoolConfig{
		InitialSize:    cfg.DBPoolInitial,
		MaxSize:        cfg.DBPoolMax,
		AcquireTimeout: cfg.DBAcquireTimeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return pool, cfg, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			logger := newLogger()
			pool, _, err := openPool(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Shutdown(ctx)

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			logger := newLogger()
			pool, _, err := openPool(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Shutdown(ctx)

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// poolCmd checks out a connection and prints pool occupancy, a quick way to
// verify connectivity and pool limits against a live database.
func poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity and pool stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger := newLogger()
			pool, _, err := openPool(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Shutdown(ctx)

			stats, err := db.CheckHealth(ctx, pool)
			if err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}

			fmt.Printf("database reachable (pool: %d idle, %d in use, max %d)\n",
				stats.IdleConns, stats.AcquiredConns, stats.MaxConns)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with sample data",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, _ := cmd.Flags().GetInt("patients")
			withNotes, _ := cmd.Flags().GetBool("notes")

			ctx := context.Background()
			logger := newLogger()
			pool, cfg, err := openPool(ctx, logger)
			if err != nil {
				return err
			}
			defer pool.Shutdown(ctx)

			return runSeed(ctx, pool, cfg, logger, patients, withNotes)
		},
	}
	cmd.Flags().Int("patients", 25, "Number of patients to create")
	cmd.Flags().Bool("notes", false, "Also seed clinical notes in the document store")
	return cmd
}

func runSeed(ctx context.Context, pool *db.Pool, cfg *config.Config, logger zerolog.Logger, patientCount int, withNotes bool) error {
	faker := gofakeit.New(0)

	deptSvc := department.NewService(department.NewRepoPG(pool, logger), logger)
	docSvc := doctor.NewService(doctor.NewRepoPG(pool, logger), logger)
	patientSvc := patient.NewService(patient.NewRepoPG(pool, logger), logger)
	apptSvc := appointment.NewService(appointment.NewRepoPG(pool, logger), logger)
	scriptSvc := prescription.NewService(prescription.NewRepoPG(pool, logger), logger)
	fbSvc := feedback.NewService(feedback.NewRepoPG(pool, logger), logger)
	stockSvc := inventory.NewService(inventory.NewRepoPG(pool, logger), logger)

	patientSvc.RegisterDependent(apptSvc)
	patientSvc.RegisterDependent(scriptSvc)
	patientSvc.RegisterDependent(fbSvc)

	var departments []department.Department
	for _, name := range []string{"Cardiology", "Neurology", "Pediatrics", "Oncology"} {
		d, err := deptSvc.Add(ctx, department.Department{
			Name:     name,
			Location: fmt.Sprintf("Block %s", faker.RandomString([]string{"A", "B", "C"})),
		})
		if err != nil {
			return fmt.Errorf("seed departments: %w", err)
		}
		departments = append(departments, d)
	}

	var doctors []doctor.Doctor
	for i := 0; i < len(departments)*3; i++ {
		dept := departments[i%len(departments)]
		d, err := docSvc.Add(ctx, doctor.Doctor{
			Name:           faker.Name(),
			Specialization: dept.Name,
			DepartmentID:   dept.ID,
		})
		if err != nil {
			return fmt.Errorf("seed doctors: %w", err)
		}
		doctors = append(doctors, d)
	}

	medNames := []string{
		"Amoxicillin", "Ibuprofen", "Paracetamol", "Lisinopril", "Metformin",
		"Atorvastatin", "Omeprazole", "Amlodipine", "Salbutamol", "Insulin",
	}
	var meds []inventory.Item
	for i, name := range medNames {
		item, err := stockSvc.Add(ctx, inventory.Item{
			Name:       fmt.Sprintf("%s %dmg", name, (i+1)*5),
			Quantity:   faker.Number(0, 500),
			ExpiryDate: faker.DateRange(time.Now(), time.Now().AddDate(3, 0, 0)),
		})
		if err != nil {
			return fmt.Errorf("seed inventory: %w", err)
		}
		meds = append(meds, item)
	}

	var noteStore *records.Store
	if withNotes {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("connect document store: %w", err)
		}
		defer client.Disconnect(ctx)
		noteStore = records.NewStore(client, cfg.MongoDatabase, logger)
	}

	for i := 0; i < patientCount; i++ {
		p, err := patientSvc.Add(ctx, patient.Patient{
			Name:        faker.Name(),
			DateOfBirth: faker.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)),
			Contact:     faker.Phone(),
		})
		if db.IsDuplicate(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed patients: %w", err)
		}

		doc := doctors[faker.Number(0, len(doctors)-1)]
		slot := faker.DateRange(time.Now(), time.Now().AddDate(0, 2, 0)).Truncate(time.Hour)
		appt, err := apptSvc.Add(ctx, appointment.Appointment{
			PatientID:       p.ID,
			DoctorID:        doc.ID,
			AppointmentDate: slot,
		})
		if err != nil && !appointment.IsDoubleBooked(err) {
			return fmt.Errorf("seed appointments: %w", err)
		}
		apptID := 0
		if err == nil {
			apptID = appt.ID
		}

		script, err := scriptSvc.Add(ctx, prescription.Prescription{
			PatientID:        p.ID,
			DoctorID:         doc.ID,
			PrescriptionDate: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("seed prescriptions: %w", err)
		}
		med := meds[faker.Number(0, len(meds)-1)]
		if _, err := scriptSvc.AddItem(ctx, prescription.Item{
			PrescriptionID: script.ID,
			MedID:          med.MedID,
			Dosage:         fmt.Sprintf("%dmg %s", faker.Number(1, 50)*5, faker.RandomString([]string{"daily", "twice daily", "as needed"})),
		}); err != nil {
			return fmt.Errorf("seed prescription items: %w", err)
		}

		if _, err := fbSvc.Add(ctx, feedback.Feedback{
			PatientID: p.ID,
			DoctorID:  doc.ID,
			Rating:    faker.Number(1, 5),
			Comments:  faker.Sentence(8),
		}); err != nil {
			return fmt.Errorf("seed feedback: %w", err)
		}

		if noteStore != nil {
			if _, err := noteStore.Add(ctx, p.ID, doc.ID, apptID, faker.Paragraph(1, 3, 12, " "), "Routine intake"); err != nil {
				return fmt.Errorf("seed clinical notes: %w", err)
			}
		}
	}

	logger.Info().Int("patients", patientCount).Msg("seed complete")
	return nil
}
