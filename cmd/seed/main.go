// Command main fills the database with demo users, projects and entries.
package main

import (
	"context"
	"flag"
	"log"

	"fieldcase/internal/config"
	"fieldcase/internal/database"
	"fieldcase/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numProjects := flag.Int("projects", 8, "Number of projects to create")
	entries := flag.Int("entries", 15, "Entries per project")
	invites := flag.Int("invites", 2, "Pending invitations per project")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d projects, %d entries/project, clean=%v\n",
		*numUsers, *numProjects, *entries, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	_, err = seed.Seed(context.Background(), db, seed.Options{
		NumUsers:          *numUsers,
		NumProjects:       *numProjects,
		EntriesPerProject: *entries,
		InvitesPerProject: *invites,
		ShouldClean:       *shouldClean,
		DryRun:            *dryRun,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
	log.Printf("📧 All demo users have the password: %s", seed.DemoPassword)
}
