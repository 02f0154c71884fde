package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from the nearest .env file, searching
// the current directory and then its parents. Variables already set in the
// environment win over the file.
func LoadEnv() error {
	dir, err := os.Getwd()
	if err != nil {
		return nil // rely on the environment
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return godotenv.Load(envPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil
}
