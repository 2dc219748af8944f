package config_test

import (
	"fmt"
	"time"

	"github.com/timernudge/timernudge/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("API:", cfg.API.BaseURL)
	fmt.Println("Timeout:", cfg.API.Timeout)
	// Output:
	// API: https://api.clockify.me/api/v1
	// Timeout: 15s
}

// Example of setting the web port with validation
func ExampleConfig_SetWebPort() {
	cfg := config.Default()

	if err := cfg.SetWebPort(18080); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Web port set to:", cfg.Web.Port)
	}

	if err := cfg.SetWebPort(70000); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Web port set to: 18080
	// Error: port must be between 1 and 65535, got 70000
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.API.Timeout = 0 * time.Second

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	}

	// Output:
	// Invalid config: API timeout must be positive, got 0s
}
