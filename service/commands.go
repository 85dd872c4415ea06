package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"animehub/app/repositories"
)

// ErrCancelled is returned when the operator declines a destructive step.
var ErrCancelled = errors.New("operation cancelled")

// DBMaintenance runs maintenance commands against the embedded store.
type DBMaintenance struct {
	Path      string
	BackupDir string
	// Force skips confirmation prompts.
	Force bool
	In    io.Reader
	Out   io.Writer
	now   func() time.Time
}

// NewDBMaintenance creates maintenance commands for the store at path
// talking to the operator on in and out.
func NewDBMaintenance(path string, in io.Reader, out io.Writer) *DBMaintenance {
	return &DBMaintenance{
		Path:      path,
		BackupDir: filepath.Join(filepath.Dir(path), "backups"),
		In:        in,
		Out:       out,
		now:       time.Now,
	}
}

func (d *DBMaintenance) exists() bool {
	_, err := os.Stat(d.Path)
	return err == nil
}

func (d *DBMaintenance) confirm(question string) bool {
	if d.Force {
		return true
	}
	fmt.Fprintf(d.Out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(d.In).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

// Init initializes a new empty database.
func (d *DBMaintenance) Init() error {
	if d.exists() {
		return fmt.Errorf("database already exists at %s; use 'clean' first if you want to reinitialize", d.Path)
	}
	db, err := repositories.OpenBadger(d.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Close(); err != nil {
		return err
	}
	fmt.Fprintln(d.Out, "Database initialized successfully")
	return nil
}

// Clean removes the database.
func (d *DBMaintenance) Clean() error {
	if !d.exists() {
		fmt.Fprintln(d.Out, "Database is already clean (does not exist)")
		return nil
	}
	if !d.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		return ErrCancelled
	}
	if err := os.RemoveAll(d.Path); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(d.Out, "Database cleaned successfully")
	return nil
}

// Backup writes a full backup into BackupDir and returns its path.
func (d *DBMaintenance) Backup() (string, error) {
	if !d.exists() {
		return "", fmt.Errorf("no database exists to backup at %s", d.Path)
	}
	if err := os.MkdirAll(d.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := repositories.OpenBadger(d.Path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	backupFile := filepath.Join(d.BackupDir, fmt.Sprintf("backup_%d.db", d.now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	fmt.Fprintf(d.Out, "Database backed up successfully to %s\n", backupFile)
	return backupFile, nil
}

// Restore replaces the database with the contents of backupFile.
func (d *DBMaintenance) Restore(backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if d.exists() {
		if !d.confirm("Existing database found. Do you want to replace it?") {
			return ErrCancelled
		}
		if err := os.RemoveAll(d.Path); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	db, err := repositories.OpenBadger(d.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := db.Load(f, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	fmt.Fprintln(d.Out, "Database restored successfully")
	return nil
}
