package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/example/spinbook/internal/domain/booking"
)

// CredentialsConfig names where the login comes from. The values themselves
// are never part of the config file.
type CredentialsConfig struct {
	EmailEnv    string `mapstructure:"email_env" yaml:"email_env"`
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"`
	// EnvFile is loaded first if it exists. Variables already set win.
	EnvFile string `mapstructure:"env_file" yaml:"env_file"`
}

// CredentialsFromEnv reads the login from the environment.
func CredentialsFromEnv(cc CredentialsConfig) (booking.Credentials, error) {
	if cc.EnvFile != "" {
		if err := godotenv.Load(cc.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return booking.Credentials{}, fmt.Errorf("load %s: %w", cc.EnvFile, err)
		}
	}
	emailKey := envName(cc.EmailEnv, "CRU_BOOKING_EMAIL")
	passKey := envName(cc.PasswordEnv, "CRU_BOOKING_PASSWORD")

	creds := booking.Credentials{
		Email:  strings.TrimSpace(os.Getenv(emailKey)),
		Secret: os.Getenv(passKey),
	}
	var missing []string
	if creds.Email == "" {
		missing = append(missing, emailKey)
	}
	if creds.Secret == "" {
		missing = append(missing, passKey)
	}
	if len(missing) > 0 {
		return booking.Credentials{}, fmt.Errorf("%s is required", strings.Join(missing, " and "))
	}
	return creds, nil
}

func envName(k, d string) string {
	if k = strings.TrimSpace(k); k == "" {
		return d
	}
	return k
}
