//go:build !windows

package main

func enableDPIAwareness() {}

func logMonitorConfiguration() {}

func showStartupError(title, message string) {}
