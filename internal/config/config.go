package config

import (
	"errors"
	"os"
	"strings"

	"github.com/claraops/callsheet/internal/enrich"
)

// Config contains runtime configuration required by the service. It is
// loaded once at boot and handed to components; nothing reads the
// environment after Load returns.
type Config struct {
	Port string

	// SheetURLs maps a client identifier to its spreadsheet automation
	// endpoint, for the multi-client dispatcher.
	SheetURLs map[string]string

	// Dedicated receiver endpoints.
	TransportSheetURL      string
	FireProtectionSheetURL string
	EliteFireSheetURL      string

	// Assignment APIs for technician enrichment.
	HVACAPIURL      string
	PlumbingAPIURL  string
	FireAlarmAPIURL string
	SprinklerAPIURL string
	EliteFireAPIURL string

	// FallbackTech is used when no assignment API yields a contact.
	FallbackTech enrich.Contact

	// DBURL enables the Postgres fingerprint store when set; otherwise
	// duplicate detection runs in process memory.
	DBURL string
}

// Load reads required values from environment variables.
// SHEET_URLS format: "client1:url1,client2:url2"
func Load() (Config, error) {
	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		SheetURLs:              map[string]string{},
		TransportSheetURL:      os.Getenv("TRANSPORT_SHEET_URL"),
		FireProtectionSheetURL: os.Getenv("FIREPROTECTION_SHEET_URL"),
		EliteFireSheetURL:      os.Getenv("ELITEFIRE_SHEET_URL"),
		HVACAPIURL:             getEnv("HVAC_API_URL", "https://hvacapi.vercel.app/api/assignments"),
		PlumbingAPIURL:         getEnv("PLUMBING_API_URL", "https://plumbing-api.vercel.app/api/assignments"),
		FireAlarmAPIURL:        os.Getenv("FIREALARM_API_URL"),
		SprinklerAPIURL:        os.Getenv("SPRINKLER_API_URL"),
		EliteFireAPIURL:        os.Getenv("ELITEFIRE_API_URL"),
		FallbackTech: enrich.Contact{
			Email: os.Getenv("FALLBACK_TECH_EMAIL"),
			Phone: os.Getenv("FALLBACK_TECH_PHONE"),
		},
		DBURL: strings.TrimSpace(os.Getenv("DB_URL")),
	}

	raw := strings.TrimSpace(os.Getenv("SHEET_URLS"))
	if raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			parts := strings.SplitN(pair, ":", 2)
			if len(parts) != 2 {
				return Config{}, errors.New(`SHEET_URLS must be "client:url,client:url"`)
			}
			client := strings.ToLower(strings.TrimSpace(parts[0]))
			url := strings.TrimSpace(parts[1])
			if client == "" || url == "" {
				return Config{}, errors.New(`SHEET_URLS must be "client:url,client:url"`)
			}
			cfg.SheetURLs[client] = url
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
