package main

import (
	"os"
)

// @title Grievance Intake API
// @version 1.0.0
// @description Complaint intake, triage and lifecycle management.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
