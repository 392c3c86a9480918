package main

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm/clause"

	"homecare/internal/config"
	"homecare/internal/database"
	"homecare/internal/domain/booking"
	"homecare/internal/domain/user"
	jwtsvc "homecare/internal/pkg/jwt"
	"homecare/internal/server"
)

// Seeds one account per role plus an open booking and prints a dev token for
// each account.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := server.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	users := []user.User{
		{ID: "seed-owner", Name: "Olivia Owner", Email: "owner@homecare.local", Phone: "+15550000001", Role: user.RoleOwner},
		{ID: "seed-admin", Name: "Adam Admin", Email: "admin@homecare.local", Phone: "+15550000002", Role: user.RoleAdmin},
		{ID: "seed-staff", Name: "Sam Nurse", Email: "staff@homecare.local", Phone: "+15550000003", Role: user.RoleStaff},
		{ID: "seed-user", Name: "Pat Patient", Email: "patient@homecare.local", Phone: "+15550000004", Role: user.RoleUser},
	}

	log.Println("Creating users...")
	for i := range users {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&users[i]).Error; err != nil {
			log.Fatalf("create user %s: %v", users[i].Email, err)
		}
	}

	ctx := context.Background()
	bookings := booking.NewService(booking.NewRepository(db), user.NewRepository(db))
	b, err := bookings.Create(ctx, "seed-user", booking.Details{
		Name:    "Pat Patient",
		Email:   "patient@homecare.local",
		Phone:   "+15550000004",
		Address: "1600 Amphitheatre Parkway, Mountain View, CA",
		Service: "Post-operative wound care",
		Notes:   "Ring the side door",
	})
	if err != nil {
		log.Fatalf("create booking: %v", err)
	}
	log.Printf("Booking %s created (pending)", b.ID)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	fmt.Println()
	fmt.Println("Dev tokens:")
	for _, u := range users {
		token, err := j.GenerateToken(u.ID, string(u.Role))
		if err != nil {
			log.Fatalf("token for %s: %v", u.ID, err)
		}
		fmt.Printf("  %-6s %-24s %s\n", u.Role, u.Email, token)
	}
}
