package config

import (
	"fmt"
	"strings"
)

type EmailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	Subject     string
}

func LoadEmailConfig() EmailConfig {
	port := envInt("SMTP_PORT", 587)
	if port <= 0 {
		port = 587
	}

	return EmailConfig{
		Host:        envStr("SMTP_HOST", ""),
		Port:        port,
		Username:    envStr("SMTP_USERNAME", ""),
		Password:    envStr("SMTP_PASSWORD", ""),
		FromAddress: envStr("SMTP_FROM", ""),
		Subject:     envStr("RESET_EMAIL_SUBJECT", "Reset your password"),
	}
}

// Validate ensures the SMTP settings needed for delivery are present.
func (c EmailConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if strings.TrimSpace(c.FromAddress) == "" && strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "SMTP_FROM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required email settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
