package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"

	"famportal/models"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// BackupDatabase writes a mysqldump of the database named by dsn to outPath.
func BackupDatabase(ctx context.Context, dsn string, outPath string) error {
	if _, err := exec.LookPath("mysqldump"); err != nil {
		return fmt.Errorf("mysqldump not found in PATH: %w", err)
	}
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid mysql dsn: %w", err)
	}
	args := []string{"--single-transaction", "--user=" + cfg.User}
	if cfg.Net == "tcp" && cfg.Addr != "" {
		if host, port, err := net.SplitHostPort(cfg.Addr); err == nil {
			args = append(args, "--host="+host, "--port="+port)
		}
	}
	args = append(args, cfg.DBName)

	outFile, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+cfg.Passwd)
	cmd.Stdout = outFile
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysqldump failed: %w", err)
	}
	return nil
}

// Migrate brings the schema up to date and makes sure the settings row
// exists. When backupDSN and backupPath are both set a mysqldump is taken
// first; a failed backup aborts the migration.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger, backupDSN, backupPath string) error {
	if backupDSN != "" && backupPath != "" {
		logger.Info("backing up database before migration", "path", backupPath)
		if err := BackupDatabase(ctx, backupDSN, backupPath); err != nil {
			return err
		}
	}
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return err
	}
	return EnsureSettings(ctx, db)
}

// EnsureSettings inserts the default settings row when the table is empty.
func EnsureSettings(ctx context.Context, db *gorm.DB) error {
	var setting models.Setting
	err := db.WithContext(ctx).First(&setting).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	setting = models.Setting{
		UserSharePercent:   models.DefaultUserSharePercent,
		FamilySharePercent: models.DefaultFamilySharePercent,
	}
	return db.WithContext(ctx).Create(&setting).Error
}
