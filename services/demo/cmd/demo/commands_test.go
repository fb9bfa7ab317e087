package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"demoapi/pkg/store"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["migrate"])
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCreatesTable(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "demo.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "port: \"8080\"\nlogLevel: \"error\"\ndatabaseURL: \"sqlite://" + dbPath + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--config", cfgPath})
	require.NoError(t, root.ExecuteContext(context.Background()))

	s, err := store.NewGormStore("sqlite://"+dbPath, store.WithoutMigration())
	require.NoError(t, err)
	defer s.Close()
	records, err := s.ListRecords(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestMigrateMemoryIsNoop(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("port: \"8080\"\ndatabaseURL: \"memory://\"\n"), 0o644))
	require.NoError(t, runMigrate(context.Background(), cfgPath))
}
