package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"jordanella.com/escort-bot/internal/config"
)

func TestInitWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "Settings.ini")

	rootCmd.SetArgs([]string{"init", "--config", configPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	settings, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(settings, config.Default()) {
		t.Errorf("written settings differ from defaults:\n%+v", settings)
	}

	routes, err := config.LoadRoutes(filepath.Join(dir, "routes.yaml"))
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}
	if !reflect.DeepEqual(routes, config.DefaultRoutes()) {
		t.Errorf("written routes differ from defaults: %+v", routes)
	}
}

func TestWriteIfMissing(t *testing.T) {
	target := filepath.Join(t.TempDir(), "file.txt")
	write := func(content string) func() error {
		return func() error { return os.WriteFile(target, []byte(content), 0644) }
	}

	if err := writeIfMissing(target, false, write("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := writeIfMissing(target, false, write("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "first" {
		t.Errorf("existing file overwritten without force: %q", data)
	}

	if err := writeIfMissing(target, true, write("forced")); err != nil {
		t.Fatalf("forced write: %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "forced" {
		t.Errorf("force did not overwrite: %q", data)
	}
}
