package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Generates a bcrypt hash for a user password so an account created without
// one can obtain API tokens.
// Usage: go run scripts/hash_password.go <password> [email]
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/hash_password.go <password> [email]")
		fmt.Println("Example: go run scripts/hash_password.go s3cret-pass ana@example.com")
		os.Exit(1)
	}

	password := os.Args[1]
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error generating hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Bcrypt Hash: %s\n", string(hashedPassword))

	if len(os.Args) < 3 {
		return
	}
	email := strings.ToLower(strings.TrimSpace(os.Args[2]))
	fmt.Printf("\nTo update in MongoDB, run:\n")
	fmt.Printf("db.users.updateOne(\n")
	fmt.Printf("  {\"email\": %q},\n", email)
	fmt.Printf("  {$set: {\"password\": %q}}\n", string(hashedPassword))
	fmt.Printf(")\n")
}
