package main

import (
	"encoding/json"
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/joripage/matching-core/config"
	"github.com/joripage/matching-core/pkg/infra"
	"github.com/joripage/matching-core/pkg/logging"
)

func main() {
	var configFile string
	var source string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", "file://migration/sql", "Migration source URL")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	if _, err := logging.NewLogger(logging.ParseLevel(cfg.LogLevel)); err != nil {
		panic(err)
	}

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	if cfg.OmsDB == nil {
		zap.S().Fatal("oms_db config is required")
	}

	mgTool := infra.GetMigrateTool()
	if err := mgTool.Migrate(source, cfg.OmsDB.MigrationConnURL); err != nil {
		zap.S().Fatalf("migrate: %v", err)
	}
	zap.S().Info("migration done")
}
