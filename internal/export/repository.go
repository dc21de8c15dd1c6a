package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smallbooks/bookkeeper/internal/errs"
)

// FileRepository lays Beancount files out under a root directory, one file
// per statement month at <root>/<year>/<year-month>.beancount.
type FileRepository struct {
	root string
}

// NewFileRepository creates a FileRepository rooted at root.
func NewFileRepository(root string) *FileRepository {
	return &FileRepository{root: root}
}

// MonthFilePath returns the path of the monthly file for a YYYY-MM key.
func (r *FileRepository) MonthFilePath(yearMonth string) (string, error) {
	if !validMonth(yearMonth) {
		return "", errs.Validation("export", "month %q is not a valid YYYY-MM month", yearMonth)
	}
	return filepath.Join(r.root, yearMonth[:4], yearMonth+".beancount"), nil
}

// RootFilePath returns the path of a file directly under the root.
func (r *FileRepository) RootFilePath(name string) string {
	return filepath.Join(r.root, name)
}

// MonthFileExists checks if a monthly file exists.
func (r *FileRepository) MonthFileExists(yearMonth string) bool {
	filePath, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return false
	}
	_, err = os.Stat(filePath)
	return err == nil
}

// EnsureMonthFile ensures a monthly file exists with a header. If the file
// already exists, this is a no-op.
func (r *FileRepository) EnsureMonthFile(yearMonth string) error {
	if r.MonthFileExists(yearMonth) {
		return nil
	}
	return r.ResetMonthFile(yearMonth)
}

// ResetMonthFile writes a fresh monthly file containing only the header,
// creating parent directories as needed.
func (r *FileRepository) ResetMonthFile(yearMonth string) error {
	filePath, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create month directory: %w", err)
	}

	header := generateFileHeader(yearMonth)
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write month file: %w", err)
	}
	return nil
}

// AppendTransaction appends a formatted transaction to a monthly file,
// creating the file first if needed. An optional comment line precedes it.
func (r *FileRepository) AppendTransaction(yearMonth, transaction string, comment ...string) error {
	filePath, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return err
	}

	if err := r.EnsureMonthFile(yearMonth); err != nil {
		return err
	}

	var content string
	if len(comment) > 0 && comment[0] != "" {
		content += fmt.Sprintf("; %s\n", comment[0])
	}
	content += transaction
	if len(transaction) > 0 && transaction[len(transaction)-1] != '\n' {
		content += "\n"
	}
	content += "\n"

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open month file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to month file: %w", err)
	}
	return nil
}

// ReadMonthFile reads the content of a monthly file. Returns an empty
// string if the file doesn't exist.
func (r *FileRepository) ReadMonthFile(yearMonth string) (string, error) {
	filePath, err := r.MonthFilePath(yearMonth)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read month file: %w", err)
	}
	return string(data), nil
}

// WriteRootFile writes a file directly under the root directory.
func (r *FileRepository) WriteRootFile(name, content string) error {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(r.RootFilePath(name), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func validMonth(s string) bool {
	d, err := time.Parse("2006-01", s)
	if err != nil {
		return false
	}
	return d.Format("2006-01") == s
}

func generateFileHeader(yearMonth string) string {
	now := time.Now().Format(time.RFC3339)
	return fmt.Sprintf("; Beancount file for %s\n; Generated at %s\n\n", yearMonth, now)
}
