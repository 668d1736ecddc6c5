package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"familytasks/internal/config"
	"familytasks/internal/database"
	"familytasks/internal/logging"
	"familytasks/internal/repository"
	"familytasks/internal/service"

	"go.uber.org/zap"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.UsesMongo() {
		log.Fatalf("The backup tool supports sqlite, postgres and mysql; use mongodump for DATABASE_TYPE=%s", cfg.DatabaseType)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// migrations run on open so the schema matches the snapshot format
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	backupService := service.NewBackupService(repository.NewBackupRepository(db), logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, logger, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, logger, backupService, *importInput, *importClear, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, logger *zap.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	logger.Info("Exporting database", zap.String("path", outputPath))
	if _, err := backupService.ExportFile(ctx, outputPath); err != nil {
		logger.Fatal("Export failed", zap.Error(err))
	}

	if info, err := os.Stat(outputPath); err == nil {
		logger.Info("Export written", zap.String("size", fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024)))
	}
}

func handleImport(ctx context.Context, logger *zap.Logger, backupService *service.BackupService, inputPath string, clearData, skipPrompt bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		logger.Fatal("Input file does not exist", zap.String("path", inputPath))
	}

	if clearData {
		if !skipPrompt && !confirm("WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
			logger.Info("Import cancelled")
			return
		}
		if err := backupService.Clear(ctx); err != nil {
			logger.Fatal("Failed to clear database", zap.Error(err))
		}
	}

	logger.Info("Importing database", zap.String("path", inputPath))
	if _, err := backupService.ImportFile(ctx, inputPath); err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}

func printUsage() {
	fmt.Println("Family Tasks Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println("  -yes              Do not prompt before clearing")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./familytasks.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
