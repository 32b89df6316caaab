package main

import (
	"fmt"
	"time"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

// Pacing constants
const (
	SampleInterval      = 1 * time.Second
	DismissDelay        = 3 * time.Second
	HTTPRequestDelay    = 200 * time.Millisecond
	InitialConnectDelay = 1 * time.Second
)

// API endpoints
const (
	AuthBaseURL       = "http://localhost:3003"
	SafetyBaseURL     = "http://localhost:3002"
	RegisterPath      = "/auth/drivers/register"
	DriverOnlinePath  = "/drivers/%s/online"
	DriverOfflinePath = "/drivers/%s/offline"
	WSDriverURL       = "ws://localhost:3002/ws/drivers/%s"
)

type DriverCredentials struct {
	Username      string
	Email         string
	Password      string
	LicenseNumber string
	VehicleType   string
}

// credentialsFor builds a fresh set of registration credentials per simulated
// driver. The suffix keeps reruns from tripping the unique email constraint.
func credentialsFor(idx int) DriverCredentials {
	suffix := time.Now().UnixNano() % 1_000_000
	return DriverCredentials{
		Username:      fmt.Sprintf("sim_driver_%d_%d", idx, suffix),
		Email:         fmt.Sprintf("sim.driver.%d.%d@carpool.test", idx, suffix),
		Password:      "simulated-driver-pass",
		LicenseNumber: fmt.Sprintf("SIM%06d", suffix+int64(idx)),
		VehicleType:   "ECONOMY",
	}
}
