package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/internal/validation"
)

// userEntry is one account read from the init file.
type userEntry struct {
	Username string
	Password string
}

func main() {
	inputFile := "./init-users.cfg"
	storePath := "./testplan-data.json"

	if len(os.Args) > 1 {
		inputFile = os.Args[1]
	}
	if len(os.Args) > 2 {
		storePath = os.Args[2]
	}

	log.Printf("Reading accounts from: %s", inputFile)
	log.Printf("Seeding user store at: %s", storePath)

	entries, err := readInitUsers(inputFile)
	if err != nil {
		log.Fatalf("Failed to read init users: %v", err)
	}

	log.Printf("Found %d account(s)", len(entries))

	created, err := seedUsers(entries, storePath)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Printf("Successfully created %d account(s) in %s", created, storePath)
	log.Println("All passwords stored as bcrypt hashes")
}

// readInitUsers parses the init file. One account per line as
// username:password; a missing password means one is generated. Blank
// lines and # comments are skipped.
func readInitUsers(filePath string) ([]userEntry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var entries []userEntry

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		username, password, _ := strings.Cut(line, ":")
		username = strings.TrimSpace(username)
		password = strings.TrimSpace(password)

		if err := validation.ValidateUsername(username); err != nil {
			return nil, fmt.Errorf("invalid username on line %d: %w", lineNum, err)
		}
		if password != "" {
			if err := validation.ValidatePassword(password); err != nil {
				return nil, fmt.Errorf("invalid password on line %d: %w", lineNum, err)
			}
		}

		entries = append(entries, userEntry{Username: username, Password: password})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return entries, nil
}

// seedUsers writes the accounts into the JSON store, hashing every
// password. Accounts that already exist are skipped with a warning.
func seedUsers(entries []userEntry, storePath string) (int, error) {
	store, err := storage.NewJSONStorage(storePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	created := 0
	for _, entry := range entries {
		password := entry.Password
		if password == "" {
			password, err = generatePassword()
			if err != nil {
				return created, fmt.Errorf("failed to generate password for %s: %w", entry.Username, err)
			}
			// Echoed once; the hash below is not recoverable.
			log.Printf("Generated password for %s: %s", entry.Username, password)
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return created, fmt.Errorf("failed to hash password for %s: %w", entry.Username, err)
		}

		user := &model.User{Username: entry.Username, Password: hash}
		if err := store.CreateUser(user); err != nil {
			if errors.Is(err, storage.ErrUsernameTaken) {
				log.Printf("Skipping %s: username already exists", entry.Username)
				continue
			}
			return created, fmt.Errorf("failed to create user %s: %w", entry.Username, err)
		}

		log.Printf("Created user %s (%s)", entry.Username, user.ID)
		created++
	}

	return created, nil
}

// generatePassword returns a cryptographically random URL-safe password.
func generatePassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
