// Command ruleseed loads hand-coded JSON rule definitions (spec.md §6.3
// RuleRecord shape) into the sqlite Rule Repository, grounded on the
// teacher's scripts/migration CLI style (flag.String for data-dir, a
// logger.New(Pretty: true) console logger, one database.New per target).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aristath/arduino-trader/internal/database"
	"github.com/aristath/arduino-trader/internal/ruledb"
	"github.com/aristath/arduino-trader/internal/rulesengine/builtins"
	"github.com/aristath/arduino-trader/internal/rulesengine/registry"
	"github.com/aristath/arduino-trader/internal/rulesengine/rule"
	"github.com/aristath/arduino-trader/internal/rulesengine/semtype"
	"github.com/aristath/arduino-trader/internal/rulesengine/serial"
	"github.com/aristath/arduino-trader/pkg/logger"
)

// ruleFile is the on-disk JSON shape a seed file carries: a RuleRecord
// minus the server-assigned timestamps, with root_node as a serial.Dict.
type ruleFile struct {
	RuleID      string         `json:"rule_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Purpose     string         `json:"purpose"`
	Version     int            `json:"version"`
	Status      string         `json:"status"`
	RootNode    serial.Dict    `json:"root_node"`
	Metrics     map[string]any `json:"metrics"`
}

func main() {
	dataDir := flag.String("data-dir", "../data", "path to the data directory containing rules.db")
	rulesDir := flag.String("rules-dir", "./rules", "directory of *.json rule definition files to load")
	createdAtTS := flag.Int64("created-at-ts", 0, "unix timestamp to stamp newly seeded rules with")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})

	db, err := database.New(database.Config{
		Path:    *dataDir + "/rules.db",
		Profile: database.ProfileStandard,
		Name:    "rules",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open rules database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate rules database")
	}

	reg := registry.New()
	if err := builtins.Register(reg, builtins.DefaultOptions()); err != nil {
		log.Fatal().Err(err).Msg("failed to register builtin nodes")
	}

	repo := ruledb.NewSQLiteRepository(db, log)

	entries, err := os.ReadDir(*rulesDir)
	if err != nil {
		log.Fatal().Err(err).Str("rules_dir", *rulesDir).Msg("failed to list rule definition files")
	}

	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(*rulesDir, entry.Name())
		if err := seedOne(reg, repo, path, *createdAtTS); err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to seed rule")
			continue
		}
		seeded++
	}

	log.Info().Int("seeded", seeded).Int("found", len(entries)).Msg("rule seeding complete")
}

func seedOne(reg *registry.Registry, repo ruledb.Repository, path string, createdAtTS int64) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var rf ruleFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	root, err := serial.Parse(reg, rf.RootNode, "")
	if err != nil {
		return fmt.Errorf("parsing tree for %s: %w", rf.RuleID, err)
	}

	status := rule.Status(rf.Status)
	if status == "" {
		status = rule.StatusReady
	}

	r, err := rule.New(rf.RuleID, rf.Name, rf.Description, rf.Version, status, createdAtTS, rf.Metrics, root)
	if err != nil {
		return fmt.Errorf("validating rule %s: %w", rf.RuleID, err)
	}

	purpose := semtype.Type(rf.Purpose)
	if purpose == "" {
		purpose = r.Purpose()
	}
	if purpose != r.Purpose() {
		return fmt.Errorf("rule %s: declared purpose %s does not match root return type %s", rf.RuleID, purpose, r.Purpose())
	}

	return repo.Put(ruledb.RuleRecord{
		RuleID:      r.RuleID,
		Name:        r.Name,
		Description: r.Description,
		Purpose:     purpose,
		Version:     r.Version,
		Status:      r.Status,
		RootNode:    rf.RootNode,
		CreatedAtTS: createdAtTS,
		UpdatedAtTS: createdAtTS,
		Metrics:     r.Metrics,
	})
}
