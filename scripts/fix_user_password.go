package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Quick utility to generate a bcrypt hash for a clinic user's password
// Usage: go run scripts/fix_user_password.go <email> <password> [patient|admin|superadmin]
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run scripts/fix_user_password.go <email> <password> [role]")
		fmt.Println("Example: go run scripts/fix_user_password.go frontdesk@clinic.test 0i2rinbcp12yc31h admin")
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	password := os.Args[2]
	role := "patient"
	if len(os.Args) > 3 {
		role = os.Args[3]
	}
	switch role {
	case "patient", "admin", "superadmin":
	default:
		fmt.Printf("Unknown role %q\n", role)
		os.Exit(1)
	}

	// Generate bcrypt hash
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))
	fmt.Printf("\nTo create or update the user in MongoDB, run:\n")
	fmt.Printf("db.users.updateOne(\n")
	fmt.Printf("  {\"email\": \"%s\"},\n", email)
	fmt.Printf("  {$set: {\"password\": \"%s\", \"role\": \"%s\"}},\n", string(hashedPassword), role)
	fmt.Printf("  {upsert: true}\n")
	fmt.Printf(")\n")
}
