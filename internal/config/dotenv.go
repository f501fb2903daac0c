package config

import "github.com/joho/godotenv"

// LoadDotEnv reads a .env file into the environment.
// Existing variables win over the file.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}
