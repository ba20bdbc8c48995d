package main

import (
	"math/rand"
	"time"

	"go-opd-token-system/config"
	"go-opd-token-system/internal/domain/entity"
	"go-opd-token-system/internal/infrastructure/database"

	"github.com/sirupsen/logrus"
)

// Seeds a handful of doctors and today's appointment slots so the API is
// usable out of the box. Skips when doctors already exist.
func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}

	var existing int64
	if err := db.Model(&entity.Doctor{}).Count(&existing).Error; err != nil {
		logrus.Fatalf("Failed to count doctors: %v", err)
	}
	if existing > 0 {
		logrus.Infof("%d doctors already exist, skipping seed", existing)
		return
	}

	doctors := []entity.Doctor{
		{Name: "Dr. Sarah Johnson", Specialization: "Cardiology"},
		{Name: "Dr. Michael Chen", Specialization: "Orthopedics"},
		{Name: "Dr. Priya Sharma", Specialization: "General Medicine"},
		{Name: "Dr. James Wilson", Specialization: "Pediatrics"},
		{Name: "Dr. Emily Davis", Specialization: "Dermatology"},
	}
	if err := db.Create(&doctors).Error; err != nil {
		logrus.Fatalf("Failed to create doctors: %v", err)
	}
	logrus.Infof("Created %d doctors", len(doctors))

	today := time.Now()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	slotHours := [][2]int{
		{9, 10}, {10, 11}, {11, 12},
		{14, 15}, {15, 16}, {16, 17},
	}

	slotCount := 0
	for _, doctor := range doctors {
		for _, hours := range slotHours {
			slot := entity.TimeSlot{
				DoctorID:    doctor.ID,
				StartTime:   midnight.Add(time.Duration(hours[0]) * time.Hour),
				EndTime:     midnight.Add(time.Duration(hours[1]) * time.Hour),
				MaxCapacity: rand.Intn(5) + 8,
				IsActive:    true,
			}
			if err := db.Create(&slot).Error; err != nil {
				logrus.Fatalf("Failed to create time slot: %v", err)
			}
			slotCount++
		}
	}

	logrus.Infof("Created %d time slots", slotCount)
	logrus.Info("Seed completed successfully")
}
