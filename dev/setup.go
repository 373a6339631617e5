package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	devenv "sigeduc-scraper/dev/env"
	"sigeduc-scraper/internal/db"
)

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

// CreateLocalStack starts the postgres instance described in
// dev/local_stack, only needed when testing the postgres driver by hand.
func CreateLocalStack() error {
	err := os.Chdir("dev/local_stack")
	if err != nil {
		return err
	}
	cmd("docker", "compose", "up", "-d")
	return os.Chdir("../..")
}

func CreateEmptyDB() error {
	path, err := devenv.ResolvePath("<dev_state>/sigeduc.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, dialect, err := db.Open(db.Options{Driver: db.DRIVER_SQLITE, File: path})
	if err != nil {
		return err
	}
	defer database.Close()
	return db.Migrate(context.Background(), database, dialect)
}

// CreateConfig copies config.example.json5 to config.json5 unless there
// already is one.
func CreateConfig() error {
	_, err := os.Stat("config.json5")
	if err == nil {
		return nil
	}
	example, err := os.ReadFile("config.example.json5")
	if err != nil {
		return err
	}
	err = os.WriteFile("config.json5", example, 0600)
	if err != nil {
		return err
	}
	slog.Info("wrote config.json5, fill in the portal credentials (or set SIGEDUC_USERNAME and SIGEDUC_PASSWORD) before crawling")
	return nil
}
